package streak

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodStart(t *testing.T) {
	// 2026-03-04 — среда
	assert.Equal(t, date(2026, 3, 2), PeriodWeekly.Start(date(2026, 3, 4)))
	assert.Equal(t, date(2026, 3, 2), PeriodWeekly.Start(date(2026, 3, 2)))
	// воскресенье относится к неделе, начавшейся в понедельник
	assert.Equal(t, date(2026, 3, 2), PeriodWeekly.Start(date(2026, 3, 8)))
	assert.Equal(t, date(2026, 3, 1), PeriodMonthly.Start(date(2026, 3, 31)))

	assert.Equal(t, date(2026, 3, 9), PeriodWeekly.Next(date(2026, 3, 2)))
	assert.Equal(t, date(2026, 2, 1), PeriodMonthly.Next(date(2026, 1, 1)))
}

func TestAdvanceRules(t *testing.T) {
	s := &Streak{Period: PeriodWeekly}

	assert.True(t, s.Advance(date(2026, 3, 4)), "первое выполнение")
	assert.Equal(t, 1, s.CurrentStreak)

	assert.False(t, s.Advance(date(2026, 3, 6)), "та же неделя")
	assert.Equal(t, 1, s.CurrentStreak)

	assert.True(t, s.Advance(date(2026, 3, 9)), "следующая неделя")
	assert.Equal(t, 2, s.CurrentStreak)

	assert.False(t, s.Advance(date(2026, 3, 3)), "задним числом")
	assert.Equal(t, 2, s.CurrentStreak)

	assert.True(t, s.Advance(date(2026, 3, 30)), "пропуск недели")
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 5, s.TotalCompletions)
}

func TestAdvanceMonthly(t *testing.T) {
	s := &Streak{Period: PeriodMonthly}
	s.Advance(date(2026, 1, 31))
	s.Advance(date(2026, 2, 1))
	s.Advance(date(2026, 3, 15))
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 3, s.LongestStreak)
}

func TestIsStale(t *testing.T) {
	last := date(2026, 3, 2)
	s := &Streak{Period: PeriodWeekly, CurrentStreak: 3, LastPeriodStart: &last}

	assert.False(t, s.IsStale(date(2026, 3, 8)))
	assert.False(t, s.IsStale(date(2026, 3, 15)), "следующая неделя ещё идёт")
	assert.True(t, s.IsStale(date(2026, 3, 16)))

	s.CurrentStreak = 0
	assert.False(t, s.IsStale(date(2026, 4, 1)))
}

func TestGetReward(t *testing.T) {
	assert.Equal(t, int64(0), GetReward(0))
	assert.Equal(t, int64(10), GetReward(1))
	assert.Equal(t, int64(70), GetReward(7))
	assert.Equal(t, int64(70), GetReward(100))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, p)
	p, err = ParsePeriod("месяц")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonthly, p)
	_, err = ParsePeriod("год")
	assert.Error(t, err)
}

type fakeWallet struct {
	added []int64
}

func (w *fakeWallet) AddBalance(_ context.Context, _ int64, amount int64, _, _ string) error {
	w.added = append(w.added, amount)
	return nil
}

var streakRowColumns = []string{
	"reminder_id", "user_id", "period", "current_streak", "longest_streak",
	"total_completions", "last_period_start", "created_at", "updated_at",
}

func TestRecordCompletionCreditsBonus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	wallet := &fakeWallet{}
	svc := NewService(NewRepository(mock), wallet)
	id := uuid.New()
	now := time.Now()
	last := date(2026, 3, 2)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO streaks").
		WithArgs(id, int64(1), "weekly").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT .* FROM streaks s").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(streakRowColumns).
			AddRow(id, int64(1), "weekly", 2, 2, 2, &last, now, now))
	mock.ExpectExec("UPDATE streaks").
		WithArgs(id, "weekly", 3, 3, 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := svc.RecordCompletion(context.Background(), 1, id, PeriodWeekly, date(2026, 3, 10), "Зарядка")
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, 3, res.Streak.CurrentStreak)
	assert.Equal(t, int64(30), res.Bonus)
	assert.Equal(t, []int64{30}, wallet.added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPeriodRealignsLastStart(t *testing.T) {
	last := date(2026, 3, 1)
	s := &Streak{Period: PeriodMonthly, CurrentStreak: 2, LastPeriodStart: &last}

	s.SetPeriod(PeriodWeekly)
	require.NotNil(t, s.LastPeriodStart)
	assert.Equal(t, date(2026, 2, 23), *s.LastPeriodStart)
	assert.True(t, s.Advance(date(2026, 3, 2)))
	assert.Equal(t, 3, s.CurrentStreak)

	s.SetPeriod(PeriodMonthly)
	assert.Equal(t, date(2026, 3, 1), *s.LastPeriodStart)
	assert.False(t, s.Advance(date(2026, 3, 20)))

	empty := &Streak{Period: PeriodWeekly}
	empty.SetPeriod(PeriodMonthly)
	assert.Nil(t, empty.LastPeriodStart)
}

func TestRecordCompletionAfterPeriodChange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	wallet := &fakeWallet{}
	svc := NewService(NewRepository(mock), wallet)
	id := uuid.New()
	now := time.Now()
	last := date(2026, 3, 1)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO streaks").
		WithArgs(id, int64(1), "weekly").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT .* FROM streaks s").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(streakRowColumns).
			AddRow(id, int64(1), "monthly", 2, 2, 2, &last, now, now))
	mock.ExpectExec("UPDATE streaks").
		WithArgs(id, "weekly", 3, 3, 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := svc.RecordCompletion(context.Background(), 1, id, PeriodWeekly, date(2026, 3, 2), "Зарядка")
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, 3, res.Streak.CurrentStreak)
	assert.Equal(t, date(2026, 3, 2), *res.Streak.LastPeriodStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatStreaks(t *testing.T) {
	assert.Contains(t, FormatStreaks(nil), "Огоньков пока нет")
	out := FormatStreaks([]*Streak{{Title: "Зарядка", Period: PeriodWeekly, CurrentStreak: 3, LongestStreak: 5}})
	assert.Contains(t, out, "Зарядка: 3 нед. подряд (рекорд 5)")
	assert.Contains(t, out, "40 монет")
}
