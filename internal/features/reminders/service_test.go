package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/badges"
	"serotonyl.ru/lifeleveling/internal/features/character"
	"serotonyl.ru/lifeleveling/internal/features/economy"
	"serotonyl.ru/lifeleveling/internal/features/streak"
)

type fakeCharacters struct {
	char     *character.Character
	granted  float64
	grantErr error
}

func (f *fakeCharacters) Get(context.Context, int64) (*character.Character, error) {
	return f.char, nil
}

func (f *fakeCharacters) Rewards(s character.Stats) (float64, int64) {
	return character.ExperienceReward(10, s), character.CoinReward(5, s)
}

func (f *fakeCharacters) GrantExperience(_ context.Context, _ int64, xp float64) (*character.LevelUp, error) {
	if f.grantErr != nil {
		return nil, f.grantErr
	}
	f.granted += xp
	before := f.char.Level
	f.char.GainExperience(xp, 5)
	return &character.LevelUp{
		LevelBefore:      before,
		LevelAfter:       f.char.Level,
		LifePointsGained: (f.char.Level - before) * 5,
		Character:        f.char,
	}, nil
}

type fakeWallet struct {
	earned int64
	txs    []string
	err    error
}

func (w *fakeWallet) AddBalance(_ context.Context, _ int64, amount int64, txType, _ string) error {
	if w.err != nil {
		return w.err
	}
	w.earned += amount
	w.txs = append(w.txs, txType)
	return nil
}

func (w *fakeWallet) GetStats(context.Context, int64) (*economy.Balance, error) {
	return &economy.Balance{TotalEarned: w.earned}, nil
}

type fakeStreaks struct {
	err error
}

func (f *fakeStreaks) RecordCompletion(_ context.Context, _ int64, id uuid.UUID, period streak.Period, _ time.Time, _ string) (*streak.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &streak.Result{
		Streak:   &streak.Streak{ReminderID: id, Period: period, CurrentStreak: 1, LongestStreak: 1},
		Advanced: true,
		Bonus:    10,
	}, nil
}

func (f *fakeStreaks) Longest(context.Context, int64) (int, error) { return 1, nil }

type fakeBadges struct {
	got badges.Progress
}

func (f *fakeBadges) Evaluate(_ context.Context, _ int64, p badges.Progress) ([]badges.Badge, error) {
	f.got = p
	if p.Completions >= 1 {
		return []badges.Badge{{ID: "first_step", Name: "Первый шаг", Icon: "👣"}}, nil
	}
	return nil, nil
}

type fakeNotifier struct {
	sent map[int64]string
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, chatID int64, text string) error {
	if n.err != nil {
		return n.err
	}
	if n.sent == nil {
		n.sent = make(map[int64]string)
	}
	n.sent[chatID] = text
	return nil
}

var reminderRowColumns = []string{
	"id", "user_id", "title", "description", "start_date", "time_of_day",
	"repeat_kind", "repeat_count", "repeat_unit", "streak_period", "notify",
	"last_notified_on", "created_at", "updated_at",
}

func reminderRow(rows *pgxmock.Rows, id uuid.UUID, start time.Time, kind string, tod string) *pgxmock.Rows {
	notified := start.AddDate(0, 0, -1)
	now := time.Now()
	return rows.AddRow(id, int64(1), "Зарядка", "", start, tod, kind, 0, "", "weekly", true, &notified, now, now)
}

type testEnv struct {
	svc     *Service
	mock    pgxmock.PgxPoolIface
	chars   *fakeCharacters
	wallet  *fakeWallet
	streaks *fakeStreaks
	badges  *fakeBadges
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	env := &testEnv{
		mock:    mock,
		chars:   &fakeCharacters{char: &character.Character{UserID: 1, Level: 1, Experience: 95, Stats: character.Stats{Strength: 10, Intelligence: 10}}},
		wallet:  &fakeWallet{},
		streaks: &fakeStreaks{},
		badges:  &fakeBadges{},
	}
	env.svc = NewService(NewRepository(mock), Deps{
		Characters: env.chars,
		Wallet:     env.wallet,
		Streaks:    env.streaks,
		Badges:     env.badges,
	})
	return env
}

func TestCompleteGrantsEverything(t *testing.T) {
	env := newEnv(t)
	id := uuid.New()
	start := day(2026, 3, 1)
	target := day(2026, 3, 4)

	env.mock.ExpectQuery("SELECT .* FROM reminders r").
		WithArgs(id, int64(1)).
		WillReturnRows(reminderRow(pgxmock.NewRows(reminderRowColumns), id, start, "daily", "07:30"))
	env.mock.ExpectBegin()
	env.mock.ExpectExec("INSERT INTO completions").
		WithArgs(id, int64(1), target, pgxmock.AnyArg(), int64(6)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	env.mock.ExpectCommit()
	env.mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	res, err := env.svc.Complete(context.Background(), 1, id, target, "bot")
	require.NoError(t, err)

	assert.InDelta(t, 12.0, res.Experience, 1e-9)
	assert.Equal(t, int64(6), res.Coins)
	assert.True(t, res.LevelUp.Leveled())
	assert.Equal(t, 2, res.LevelUp.LevelAfter)
	require.NotNil(t, res.Streak)
	assert.Equal(t, int64(10), res.Streak.Bonus)
	require.Len(t, res.Badges, 1)
	assert.Equal(t, "first_step", res.Badges[0].ID)

	assert.Equal(t, []string{economy.TxTypeHabitReward}, env.wallet.txs)
	assert.Equal(t, 2, env.badges.got.Level)
	assert.Equal(t, int64(6), env.badges.got.CoinsEarned)
	assert.NoError(t, env.mock.ExpectationsWereMet())

	text := FormatCompletion(res)
	assert.Contains(t, text, "Новый уровень: 2")
	assert.Contains(t, text, "Огонёк")
	assert.Contains(t, text, "Первый шаг")
}

func TestCompleteNotDue(t *testing.T) {
	env := newEnv(t)
	id := uuid.New()
	start := day(2026, 3, 1)

	env.mock.ExpectQuery("SELECT .* FROM reminders r").
		WithArgs(id, int64(1)).
		WillReturnRows(reminderRow(pgxmock.NewRows(reminderRowColumns), id, start, "once", ""))

	_, err := env.svc.Complete(context.Background(), 1, id, day(2026, 3, 2), "api")
	assert.ErrorIs(t, err, common.ErrNotDue)
	assert.Zero(t, env.chars.granted)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCompleteTwiceSameDay(t *testing.T) {
	env := newEnv(t)
	id := uuid.New()
	start := day(2026, 3, 1)

	env.mock.ExpectQuery("SELECT .* FROM reminders r").
		WithArgs(id, int64(1)).
		WillReturnRows(reminderRow(pgxmock.NewRows(reminderRowColumns), id, start, "daily", ""))
	env.mock.ExpectBegin()
	env.mock.ExpectExec("INSERT INTO completions").
		WithArgs(id, int64(1), start, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	env.mock.ExpectRollback()

	_, err := env.svc.Complete(context.Background(), 1, id, start, "bot")
	assert.ErrorIs(t, err, common.ErrAlreadyCompleted)
	assert.Zero(t, env.chars.granted)
	assert.Empty(t, env.wallet.txs)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCompleteUnknownReminder(t *testing.T) {
	env := newEnv(t)
	id := uuid.New()

	env.mock.ExpectQuery("SELECT .* FROM reminders r").
		WithArgs(id, int64(1)).
		WillReturnRows(pgxmock.NewRows(reminderRowColumns))

	_, err := env.svc.Complete(context.Background(), 1, id, day(2026, 3, 2), "bot")
	assert.ErrorIs(t, err, common.ErrReminderNotFound)
}

func TestCompleteSurvivesStreakFailure(t *testing.T) {
	env := newEnv(t)
	env.streaks.err = errors.New("deadlock")
	env.svc.deps.Badges = nil
	id := uuid.New()
	start := day(2026, 3, 1)

	env.mock.ExpectQuery("SELECT .* FROM reminders r").
		WithArgs(id, int64(1)).
		WillReturnRows(reminderRow(pgxmock.NewRows(reminderRowColumns), id, start, "daily", ""))
	env.mock.ExpectBegin()
	env.mock.ExpectExec("INSERT INTO completions").
		WithArgs(id, int64(1), start, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	env.mock.ExpectCommit()

	res, err := env.svc.Complete(context.Background(), 1, id, start, "bot")
	require.NoError(t, err)
	assert.Nil(t, res.Streak)
	assert.Empty(t, res.Badges)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCompleteRewardFailureCanBeRetried(t *testing.T) {
	env := newEnv(t)
	env.svc.deps.Badges = nil
	env.svc.deps.Streaks = nil
	id := uuid.New()
	start := day(2026, 3, 1)

	expectAttempt := func(commit bool) {
		env.mock.ExpectQuery("SELECT .* FROM reminders r").
			WithArgs(id, int64(1)).
			WillReturnRows(reminderRow(pgxmock.NewRows(reminderRowColumns), id, start, "daily", ""))
		env.mock.ExpectBegin()
		env.mock.ExpectExec("INSERT INTO completions").
			WithArgs(id, int64(1), start, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		if commit {
			env.mock.ExpectCommit()
		} else {
			env.mock.ExpectRollback()
		}
	}

	env.chars.grantErr = errors.New("connection reset")
	expectAttempt(false)
	_, err := env.svc.Complete(context.Background(), 1, id, start, "bot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка начисления опыта")
	assert.Empty(t, env.wallet.txs)

	env.chars.grantErr = nil
	expectAttempt(true)
	res, err := env.svc.Complete(context.Background(), 1, id, start, "bot")
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Coins)
	assert.Equal(t, int64(6), env.wallet.earned)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCompleteCoinFailureRollsBack(t *testing.T) {
	env := newEnv(t)
	env.svc.deps.Badges = nil
	env.wallet.err = errors.New("deadlock detected")
	id := uuid.New()
	start := day(2026, 3, 1)

	env.mock.ExpectQuery("SELECT .* FROM reminders r").
		WithArgs(id, int64(1)).
		WillReturnRows(reminderRow(pgxmock.NewRows(reminderRowColumns), id, start, "daily", ""))
	env.mock.ExpectBegin()
	env.mock.ExpectExec("INSERT INTO completions").
		WithArgs(id, int64(1), start, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	env.mock.ExpectRollback()

	_, err := env.svc.Complete(context.Background(), 1, id, start, "bot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка начисления монет")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCompleteRejectsFutureDate(t *testing.T) {
	env := newEnv(t)
	env.svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	_, err := env.svc.Complete(context.Background(), 1, uuid.New(), day(2026, 3, 11), "api")
	assert.ErrorIs(t, err, common.ErrFutureDate)

	_, err = env.svc.Complete(context.Background(), 1, uuid.New(), day(2099, 1, 1), "bot")
	assert.ErrorIs(t, err, common.ErrFutureDate)

	assert.Zero(t, env.chars.granted)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateValidates(t *testing.T) {
	env := newEnv(t)

	_, err := env.svc.Create(context.Background(), 1, Input{Title: "  ", StartDate: day(2026, 3, 1)})
	assert.ErrorIs(t, err, common.ErrEmptyTitle)

	_, err = env.svc.Create(context.Background(), 1, Input{Title: "x", StartDate: day(2026, 3, 1), TimeOfDay: "25:00"})
	assert.ErrorIs(t, err, common.ErrInvalidDate)

	_, err = env.svc.Create(context.Background(), 1, Input{Title: "x", StartDate: day(2026, 3, 1), Rule: Rule{Kind: KindFinite}})
	assert.ErrorIs(t, err, common.ErrInvalidRule)

	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateStoresReminder(t *testing.T) {
	env := newEnv(t)
	now := time.Now()

	env.mock.ExpectQuery("INSERT INTO reminders").
		WithArgs(pgxmock.AnyArg(), int64(1), "Чтение", "", day(2026, 3, 1), "21:00",
			"finite", 3, "weeks", "monthly", true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rem, err := env.svc.Create(context.Background(), 1, Input{
		Title:        " Чтение ",
		StartDate:    time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		TimeOfDay:    "21:00",
		Rule:         Rule{Kind: KindFinite, Count: 3, Unit: UnitWeeks},
		StreakPeriod: streak.PeriodMonthly,
		Notify:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Чтение", rem.Title)
	assert.Len(t, rem.ShortID(), ShortIDLength)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestResolveRejectsGarbage(t *testing.T) {
	env := newEnv(t)
	_, err := env.svc.Resolve(context.Background(), 1, "zz")
	assert.ErrorIs(t, err, common.ErrReminderNotFound)
	_, err = env.svc.Resolve(context.Background(), 1, "'; drop")
	assert.ErrorIs(t, err, common.ErrReminderNotFound)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestResolveAmbiguousPrefix(t *testing.T) {
	env := newEnv(t)
	start := day(2026, 3, 1)
	rows := pgxmock.NewRows(reminderRowColumns)
	reminderRow(rows, uuid.New(), start, "daily", "")
	reminderRow(rows, uuid.New(), start, "daily", "")

	env.mock.ExpectQuery("LIKE").
		WithArgs(int64(1), "abcd").
		WillReturnRows(rows)

	_, err := env.svc.Resolve(context.Background(), 1, "ABCD")
	assert.ErrorIs(t, err, common.ErrAmbiguousReminder)
}

func TestBuildCalendar(t *testing.T) {
	list := []*Reminder{
		{Title: "Раз", StartDate: day(2026, 2, 10), Rule: Rule{Kind: KindOnce}},
		{Title: "Неделя", StartDate: day(2026, 2, 25), Rule: Rule{Kind: KindFinite, Count: 1, Unit: UnitWeeks}},
	}
	days := BuildCalendar(list, day(2026, 2, 14))
	require.Len(t, days, 28)
	assert.Len(t, days[9].Reminders, 1)  // 10 февраля
	assert.Empty(t, days[10].Reminders)  // 11 февраля
	assert.Len(t, days[27].Reminders, 1) // 28 февраля, неделя ещё идёт

	march := BuildCalendar(list, day(2026, 3, 1))
	assert.Len(t, march[3].Reminders, 1) // 4 марта = 25.02 + 7
	assert.Empty(t, march[4].Reminders)
}

func TestNotifySendsDueReminders(t *testing.T) {
	env := newEnv(t)
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }
	today := day(2026, 3, 4)

	due := uuid.New()
	later := uuid.New()
	rows := pgxmock.NewRows(append(append([]string{}, reminderRowColumns...), "telegram_id"))
	notified := day(2026, 3, 3)
	rows.AddRow(due, int64(1), "Зарядка", "", day(2026, 3, 1), "07:30", "daily", 0, "", "weekly", true, &notified, now, now, int64(555))
	rows.AddRow(later, int64(1), "Чтение", "", day(2026, 3, 1), "21:00", "daily", 0, "", "weekly", true, &notified, now, now, int64(555))

	env.mock.ExpectQuery("FROM reminders r").
		WithArgs(today).
		WillReturnRows(rows)
	env.mock.ExpectExec("UPDATE reminders SET last_notified_on").
		WithArgs(due, today).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	notifier := &fakeNotifier{}
	sent, err := env.svc.Notify(context.Background(), notifier)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Contains(t, notifier.sent[555], "Зарядка")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestFormatAgenda(t *testing.T) {
	rem := &Reminder{ID: uuid.New(), Title: "Зарядка", TimeOfDay: "07:30"}
	out := FormatAgenda(day(2026, 3, 4), []DueItem{{Reminder: rem, Completed: true}})
	assert.Contains(t, out, "04.03.2026")
	assert.Contains(t, out, "✅")
	assert.Contains(t, out, rem.ShortID())

	assert.Contains(t, FormatAgenda(day(2026, 3, 4), nil), "ничего не запланировано")
}
