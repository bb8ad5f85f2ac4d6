// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях приложения.
// Эти ошибки позволяют обработчикам (бот и HTTP API) различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки экономики (монеты)
var (
	// ErrInsufficientBalance — недостаточно монет на счёте
	ErrInsufficientBalance = errors.New("недостаточно монет на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
)

// Ошибки аккаунтов и входа
var (
	// ErrAccountNotFound — аккаунт не найден в базе
	ErrAccountNotFound = errors.New("аккаунт не найден")
	// ErrEmailTaken — email уже зарегистрирован
	ErrEmailTaken = errors.New("этот email уже зарегистрирован")
	// ErrInvalidEmail — email не похож на email
	ErrInvalidEmail = errors.New("некорректный email")
	// ErrWeakPassword — пароль короче 8 символов
	ErrWeakPassword = errors.New("пароль должен быть не короче 8 символов")
	// ErrInvalidCredentials — неверный email или пароль
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	// ErrInvalidToken — токен сессии не прошёл проверку или истёк
	ErrInvalidToken = errors.New("недействительный токен")
	// ErrBanned — аккаунт заблокирован
	ErrBanned = errors.New("аккаунт заблокирован")
)

// Ошибки персонажа
var (
	// ErrInvalidStat — неизвестная характеристика
	ErrInvalidStat = errors.New("неизвестная характеристика")
	// ErrNotEnoughLifePoints — не хватает очков жизни для прокачки
	ErrNotEnoughLifePoints = errors.New("недостаточно очков жизни")
)

// Ошибки напоминаний
var (
	// ErrReminderNotFound — напоминание не найдено (или принадлежит другому пользователю)
	ErrReminderNotFound = errors.New("напоминание не найдено")
	// ErrAmbiguousReminder — короткий ID подходит к нескольким напоминаниям
	ErrAmbiguousReminder = errors.New("под этот ID подходит несколько напоминаний, уточните")
	// ErrInvalidRule — не удалось разобрать правило повтора
	ErrInvalidRule = errors.New("некорректное правило повтора")
	// ErrInvalidDate — не удалось разобрать дату или время
	ErrInvalidDate = errors.New("некорректная дата или время")
	// ErrEmptyTitle — пустое или слишком длинное название
	ErrEmptyTitle = errors.New("название должно содержать от 1 до 200 символов")
	// ErrNotDue — напоминание не запланировано на эту дату
	ErrNotDue = errors.New("на эту дату напоминание не запланировано")
	// ErrFutureDate — выполнить можно только сегодня или задним числом
	ErrFutureDate = errors.New("нельзя отметить выполнение на будущую дату")
	// ErrAlreadyCompleted — уже выполнено в этот день
	ErrAlreadyCompleted = errors.New("уже выполнено в этот день")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
	// ErrAdminDisabled — ADMIN_PASSWORD_HASH не задан
	ErrAdminDisabled = errors.New("админ-панель отключена")
)
