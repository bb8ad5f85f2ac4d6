// Package reminders — handlers.go обрабатывает команды:
// !напоминания, !сегодня, !добавить, !удалить, !выполнить, !календарь.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/badges"
	"serotonyl.ru/lifeleveling/internal/features/streak"
)

// Handler обрабатывает команды напоминаний.
type Handler struct {
	service *Service
	sender  reply.Sender
}

// NewHandler создаёт обработчик команд напоминаний.
func NewHandler(service *Service, sender reply.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleList обрабатывает !напоминания — все напоминания с короткими ID.
func (h *Handler) HandleList(ctx context.Context, chatID, userID int64) {
	list, err := h.service.List(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения напоминаний")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка получения напоминаний")
		return
	}
	reply.Text(ctx, h.sender, chatID, FormatList(list))
}

// HandleAgenda обрабатывает !сегодня [дата] — что запланировано на день.
func (h *Handler) HandleAgenda(ctx context.Context, chatID, userID int64, args []string) {
	date := common.Today()
	if len(args) > 0 {
		d, err := common.ParseDate(args[0])
		if err != nil {
			reply.Text(ctx, h.sender, chatID, "❌ Дата в формате ГГГГ-ММ-ДД, «сегодня» или «завтра»")
			return
		}
		date = d
	}

	items, err := h.service.DueOn(ctx, userID, date)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения расписания")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка получения расписания")
		return
	}
	reply.Text(ctx, h.sender, chatID, FormatAgenda(date, items))
}

// HandleAdd обрабатывает !добавить <дата> <время|-> <правило> <название>.
//
// Пример: !добавить сегодня 07:30 ежедневно Зарядка
func (h *Handler) HandleAdd(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 4 {
		reply.Text(ctx, h.sender, chatID,
			"❌ Формат: !добавить <дата> <ЧЧ:ММ|-> <правило> <название>\n"+
				"Правило: разово, ежедневно, всегда или срок вида 10d, 3w, 6m, 1y\n"+
				"Пример: !добавить сегодня 07:30 ежедневно Зарядка")
		return
	}

	date, err := common.ParseDate(args[0])
	if err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ Дата в формате ГГГГ-ММ-ДД, «сегодня» или «завтра»")
		return
	}
	rule, err := ParseRule(args[2])
	if err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ Правило: разово, ежедневно, всегда или срок вида 10d, 3w, 6m, 1y")
		return
	}

	in := Input{
		Title:        strings.Join(args[3:], " "),
		StartDate:    date,
		TimeOfDay:    args[1],
		Rule:         rule,
		StreakPeriod: streak.PeriodWeekly,
		Notify:       true,
	}
	rem, err := h.service.Create(ctx, userID, in)
	if err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ "+userMessage(err))
		if !isUserError(err) {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка создания напоминания")
		}
		return
	}

	reply.Text(ctx, h.sender, chatID, fmt.Sprintf("✅ Напоминание добавлено\n%s", formatReminder(rem)))
}

// HandleDelete обрабатывает !удалить <id>.
func (h *Handler) HandleDelete(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		reply.Text(ctx, h.sender, chatID, "❌ Формат: !удалить <id>")
		return
	}
	rem, err := h.service.Resolve(ctx, userID, args[0])
	if err == nil {
		err = h.service.Delete(ctx, userID, rem.ID)
	}
	if err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ "+userMessage(err))
		if !isUserError(err) {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка удаления напоминания")
		}
		return
	}
	reply.Text(ctx, h.sender, chatID, fmt.Sprintf("🗑 Напоминание «%s» удалено", rem.Title))
}

// HandleComplete обрабатывает !выполнить <id> [дата].
func (h *Handler) HandleComplete(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		reply.Text(ctx, h.sender, chatID, "❌ Формат: !выполнить <id> [дата]")
		return
	}
	date := common.Today()
	if len(args) > 1 {
		d, err := common.ParseDate(args[1])
		if err != nil {
			reply.Text(ctx, h.sender, chatID, "❌ Дата в формате ГГГГ-ММ-ДД, «сегодня» или «вчера»")
			return
		}
		date = d
	}

	rem, err := h.service.Resolve(ctx, userID, args[0])
	if err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ "+userMessage(err))
		return
	}

	res, err := h.service.Complete(ctx, userID, rem.ID, date, "bot")
	if err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ "+userMessage(err))
		if !isUserError(err) {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка выполнения напоминания")
		}
		return
	}
	reply.Text(ctx, h.sender, chatID, FormatCompletion(res))
}

// HandleCalendar обрабатывает !календарь [дата] — месяц, в который попадает дата.
func (h *Handler) HandleCalendar(ctx context.Context, chatID, userID int64, args []string) {
	month := common.Today()
	if len(args) > 0 {
		m, err := ParseMonth(args[0])
		if err != nil {
			reply.Text(ctx, h.sender, chatID, "❌ Месяц в формате ГГГГ-ММ или дата ГГГГ-ММ-ДД")
			return
		}
		month = m
	}

	days, err := h.service.Calendar(ctx, userID, month)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка построения календаря")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка построения календаря")
		return
	}
	reply.Text(ctx, h.sender, chatID, FormatCalendar(month, days))
}

// ParseMonth понимает "2026-03", а также любую дату, которую понимает ParseDate.
func ParseMonth(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01", strings.TrimSpace(s)); err == nil {
		return t, nil
	}
	return common.ParseDate(s)
}

// FormatList собирает текст для !напоминания.
func FormatList(list []*Reminder) string {
	if len(list) == 0 {
		return "📝 Напоминаний пока нет. Добавь первое: !добавить сегодня 07:30 ежедневно Зарядка"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📝 Напоминания (%d):\n", len(list)))
	for _, rem := range list {
		sb.WriteString("\n")
		sb.WriteString(formatReminder(rem))
	}
	return sb.String()
}

func formatReminder(rem *Reminder) string {
	when := common.FormatDate(rem.StartDate)
	if rem.TimeOfDay != "" {
		when += " " + rem.TimeOfDay
	}
	return fmt.Sprintf("[%s] %s — с %s, %s", rem.ShortID(), rem.Title, when, rem.Rule)
}

// FormatAgenda собирает текст расписания на день.
func FormatAgenda(date time.Time, items []DueItem) string {
	if len(items) == 0 {
		return fmt.Sprintf("📅 %s: ничего не запланировано", common.FormatDate(date))
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 %s:\n", common.FormatDate(date)))
	for _, it := range items {
		mark := "⬜"
		if it.Completed {
			mark = "✅"
		}
		line := fmt.Sprintf("\n%s [%s] %s", mark, it.Reminder.ShortID(), it.Reminder.Title)
		if it.Reminder.TimeOfDay != "" {
			line += " в " + it.Reminder.TimeOfDay
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// FormatCalendar собирает текст календаря: только дни, на которые что-то запланировано.
func FormatCalendar(month time.Time, days []CalendarDay) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗓 %s\n", month.Format("01.2006")))

	empty := true
	for _, d := range days {
		if len(d.Reminders) == 0 {
			continue
		}
		empty = false
		titles := make([]string, len(d.Reminders))
		for i, rem := range d.Reminders {
			titles[i] = rem.Title
		}
		sb.WriteString(fmt.Sprintf("\n%02d: %s", d.Date.Day(), strings.Join(titles, ", ")))
	}
	if empty {
		sb.WriteString("\nНа этот месяц ничего не запланировано")
	}
	return sb.String()
}

// FormatCompletion собирает ответ на выполнение напоминания.
func FormatCompletion(res *CompletionResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ «%s» выполнено\n⭐ +%.1f опыта, 💰 %s",
		res.Reminder.Title, res.Experience, common.FormatCoinsAmount(res.Coins)))

	if res.LevelUp != nil && res.LevelUp.Leveled() {
		sb.WriteString(fmt.Sprintf("\n🎉 Новый уровень: %d! +%d %s жизни",
			res.LevelUp.LevelAfter, res.LevelUp.LifePointsGained, common.PluralizePoints(res.LevelUp.LifePointsGained)))
	}
	if res.Streak != nil && res.Streak.Advanced {
		sb.WriteString(fmt.Sprintf("\n🔥 Огонёк: %d %s подряд, бонус %s",
			res.Streak.Streak.CurrentStreak, res.Streak.Streak.Period.Title(), common.FormatCoinsAmount(res.Streak.Bonus)))
	}
	if line := badges.FormatUnlocked(res.Badges); line != "" {
		sb.WriteString("\n" + line)
	}
	return sb.String()
}

// FormatNotification — текст уведомления о напоминании.
func FormatNotification(rem *Reminder) string {
	text := fmt.Sprintf("⏰ Пора: %s", rem.Title)
	if rem.Description != "" {
		text += "\n" + rem.Description
	}
	return text + fmt.Sprintf("\n\nОтметить: !выполнить %s", rem.ShortID())
}

// userMessage превращает ошибку в текст для пользователя.
func userMessage(err error) string {
	for _, known := range userErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "Что-то пошло не так, попробуйте позже"
}

var userErrors = []error{
	common.ErrReminderNotFound,
	common.ErrAmbiguousReminder,
	common.ErrInvalidRule,
	common.ErrInvalidDate,
	common.ErrEmptyTitle,
	common.ErrNotDue,
	common.ErrFutureDate,
	common.ErrAlreadyCompleted,
}

func isUserError(err error) bool {
	for _, known := range userErrors {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
