package character

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lifeleveling/internal/common"
)

func TestExperienceToNextLevelMonotonic(t *testing.T) {
	assert.Equal(t, 100.0, ExperienceToNextLevel(1))
	assert.Equal(t, 100.0, ExperienceToNextLevel(0))
	assert.Equal(t, 1000.0, ExperienceToNextLevel(10))

	prev := ExperienceToNextLevel(1)
	for level := 2; level <= 500; level++ {
		cur := ExperienceToNextLevel(level)
		assert.GreaterOrEqual(t, cur, prev, "level %d", level)
		prev = cur
	}
}

func TestApplyExperience(t *testing.T) {
	tests := []struct {
		name      string
		level     int
		exp       float64
		gained    float64
		wantLevel int
		wantExp   float64
		wantUp    int
	}{
		{"без подъёма", 1, 0, 50, 1, 50, 0},
		{"ровно порог", 1, 0, 100, 2, 0, 1},
		{"перенос излишка", 1, 90, 30, 2, 20, 1},
		{"несколько уровней", 1, 0, 350, 3, 50, 2},
		{"отрицательный опыт игнорируется", 2, 40, -10, 2, 40, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, exp, up := ApplyExperience(tt.level, tt.exp, tt.gained)
			assert.Equal(t, tt.wantLevel, level)
			assert.InDelta(t, tt.wantExp, exp, 1e-9)
			assert.Equal(t, tt.wantUp, up)
		})
	}
}

func TestRewardsMonotonicInEachStat(t *testing.T) {
	base := Stats{Strength: 3, Defense: 3, Intelligence: 3, Agility: 3, Health: 3}
	for _, stat := range AllStats {
		s := base
		prevXP := ExperienceReward(10, s)
		prevCoins := CoinReward(5, s)
		for i := 0; i < 50; i++ {
			require.NoError(t, s.add(stat, 1))
			xp := ExperienceReward(10, s)
			coins := CoinReward(5, s)
			assert.GreaterOrEqual(t, xp, prevXP, "stat %s", stat)
			assert.GreaterOrEqual(t, coins, prevCoins, "stat %s", stat)
			prevXP, prevCoins = xp, coins
		}
	}
}

func TestRewardExamples(t *testing.T) {
	assert.InDelta(t, 12.0, ExperienceReward(10, Stats{Strength: 10}), 1e-9)
	assert.Equal(t, int64(6), CoinReward(5, Stats{Intelligence: 10}))
	assert.Equal(t, 10.0, ExperienceReward(10, Stats{Health: 100}))
}

func TestCharacterAllocate(t *testing.T) {
	c := &Character{Level: 1, LifePoints: 5}

	require.NoError(t, c.Allocate(StatStrength, 3))
	assert.Equal(t, 3, c.Stats.Strength)
	assert.Equal(t, 2, c.LifePoints)

	assert.ErrorIs(t, c.Allocate(StatDefense, 3), common.ErrNotEnoughLifePoints)
	assert.ErrorIs(t, c.Allocate(StatDefense, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, c.Allocate(Stat("luck"), 1), common.ErrInvalidStat)
	assert.Equal(t, 2, c.LifePoints)
}

func TestParseStat(t *testing.T) {
	for in, want := range map[string]Stat{
		"сила": StatStrength, "DEF": StatDefense, " интеллект ": StatIntelligence,
		"agility": StatAgility, "hp": StatHealth,
	} {
		got, err := ParseStat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseStat("удача")
	assert.ErrorIs(t, err, common.ErrInvalidStat)
}

func TestGainExperienceGrantsLifePoints(t *testing.T) {
	c := &Character{Level: 1, LifePoints: 0}
	up := c.GainExperience(350, 5)
	assert.Equal(t, 2, up)
	assert.Equal(t, 3, c.Level)
	assert.Equal(t, 10, c.LifePoints)
}

var characterRowColumns = []string{
	"user_id", "level", "experience", "life_points",
	"strength", "defense", "intelligence", "agility", "health", "created_at", "updated_at",
}

type fakeWallet struct {
	balance  int64
	deducted int64
	added    int64
}

func (w *fakeWallet) GetBalance(context.Context, int64) (int64, error) { return w.balance, nil }

func (w *fakeWallet) AddBalance(_ context.Context, _ int64, amount int64, _, _ string) error {
	w.balance += amount
	w.added += amount
	return nil
}

func (w *fakeWallet) DeductBalance(_ context.Context, _ int64, amount int64, _, _ string) error {
	if w.balance < amount {
		return common.ErrInsufficientBalance
	}
	w.balance -= amount
	w.deducted += amount
	return nil
}

func newTestService(t *testing.T, wallet Wallet) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	svc := NewService(NewRepository(mock), wallet, Settings{
		StartLifePoints:    5,
		LifePointsPerLevel: 5,
		BaseExperience:     10,
		BaseCoins:          5,
		LifePointPrice:     50,
	})
	return svc, mock
}

func TestGrantExperienceLevelsUp(t *testing.T) {
	svc, mock := newTestService(t, &fakeWallet{})
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM characters WHERE user_id = \\$1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(characterRowColumns).
			AddRow(int64(1), 1, 95.0, 0, 0, 0, 0, 0, 0, now, now))
	mock.ExpectExec("UPDATE characters").
		WithArgs(int64(1), 2, 7.0, 5, 0, 0, 0, 0, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	up, err := svc.GrantExperience(context.Background(), 1, 12)
	require.NoError(t, err)
	assert.True(t, up.Leveled())
	assert.Equal(t, 1, up.LevelBefore)
	assert.Equal(t, 2, up.LevelAfter)
	assert.Equal(t, 5, up.LifePointsGained)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateDoesNotSaveOnError(t *testing.T) {
	svc, mock := newTestService(t, &fakeWallet{})
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM characters").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(characterRowColumns).
			AddRow(int64(1), 2, 0.0, 1, 0, 0, 0, 0, 0, now, now))
	mock.ExpectRollback()

	_, err := svc.Allocate(context.Background(), 1, StatAgility, 2)
	assert.ErrorIs(t, err, common.ErrNotEnoughLifePoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuyLifePointsInsufficientCoins(t *testing.T) {
	wallet := &fakeWallet{balance: 70}
	svc, mock := newTestService(t, wallet)

	_, err := svc.BuyLifePoints(context.Background(), 1, 2)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	assert.Equal(t, int64(70), wallet.balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuyLifePointsRefundsOnFailure(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	svc, mock := newTestService(t, wallet)

	mock.ExpectBegin().WillReturnError(assert.AnError)

	_, err := svc.BuyLifePoints(context.Background(), 1, 1)
	assert.Error(t, err)
	assert.Equal(t, int64(50), wallet.deducted)
	assert.Equal(t, int64(50), wallet.added)
	assert.Equal(t, int64(100), wallet.balance)
}

func TestBuyLifePointsRejectsHugeCounts(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	svc, mock := newTestService(t, wallet)

	for _, n := range []int{0, -3, MaxLifePointsPurchase + 1, 1106804644422573097} {
		_, err := svc.BuyLifePoints(context.Background(), 1, n)
		assert.ErrorIs(t, err, common.ErrInvalidAmount, "n=%d", n)
	}
	assert.Zero(t, wallet.deducted)
	assert.Equal(t, int64(100), wallet.balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuyLifePointsCostDoesNotOverflow(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	svc := NewService(NewRepository(mock), wallet, Settings{LifePointPrice: math.MaxInt64 / 10})

	_, err = svc.BuyLifePoints(context.Background(), 1, 11)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
	assert.Zero(t, wallet.deducted)
}

func TestFormatProfile(t *testing.T) {
	out := FormatProfile(&Profile{
		Character:        &Character{Level: 3, Experience: 120.5, LifePoints: 5, Stats: Stats{Strength: 2}},
		ExperienceToNext: 300,
		Coins:            1500,
	})
	assert.Contains(t, out, "Уровень 3")
	assert.Contains(t, out, "120.5 / 300")
	assert.Contains(t, out, "1 500")
	assert.Contains(t, out, "Сила: 2")
}
