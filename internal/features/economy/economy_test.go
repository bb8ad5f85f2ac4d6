package economy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lifeleveling/internal/common"
)

func newMockService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewService(NewRepository(mock)), mock
}

func TestAddBalanceWritesTransaction(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE balances").
		WithArgs(int64(7), int64(12)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(int64(7), int64(12), TxTypeHabitReward, "Зарядка").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := svc.AddBalance(context.Background(), 7, 12, TxTypeHabitReward, "Зарядка")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBalanceUnknownAccount(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE balances").
		WithArgs(int64(7), int64(12)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := svc.AddBalance(context.Background(), 7, 12, TxTypeHabitReward, "Зарядка")
	assert.ErrorIs(t, err, common.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBalanceRejectsNonPositive(t *testing.T) {
	svc, mock := newMockService(t)

	for _, amount := range []int64{0, -5} {
		err := svc.AddBalance(context.Background(), 1, amount, TxTypeAdminGive, "")
		assert.ErrorIs(t, err, common.ErrInvalidAmount)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductBalanceInsufficient(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance FROM balances").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(40)))
	mock.ExpectRollback()

	err := svc.DeductBalance(context.Background(), 3, 50, TxTypeLifePointPurchase, "1 очко жизни")
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductBalanceStoresNegativeAmount(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance FROM balances").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(120)))
	mock.ExpectExec("UPDATE balances").
		WithArgs(int64(3), int64(50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(int64(3), int64(-50), TxTypeLifePointPurchase, "1 очко жизни").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := svc.DeductBalance(context.Background(), 3, 50, TxTypeLifePointPurchase, "1 очко жизни")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBalanceDatabaseError(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT balance FROM balances").
		WithArgs(int64(9)).
		WillReturnError(errors.New("connection reset"))

	_, err := svc.GetBalance(context.Background(), 9)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "📋 У вас пока нет транзакций", FormatHistory(nil))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var txs []*Transaction
	for i := 0; i < 7; i++ {
		txs = append(txs, &Transaction{
			Amount:      int64(i + 1),
			Description: fmt.Sprintf("запись %d", i+1),
			CreatedAt:   at,
		})
	}

	out := FormatHistory(txs[:3])
	assert.NotContains(t, out, "tg-spoiler")
	assert.Contains(t, out, "3. ")

	out = FormatHistory(txs)
	require.Contains(t, out, "<tg-spoiler>")
	before, after, _ := strings.Cut(out, "<tg-spoiler>")
	assert.Contains(t, before, "запись 5")
	assert.NotContains(t, before, "запись 6")
	assert.Contains(t, after, "запись 7")
}

func TestFormatHistoryEscapesDescription(t *testing.T) {
	out := FormatHistory([]*Transaction{{Amount: 5, Description: "<b>x</b>"}})
	assert.Contains(t, out, "&lt;b&gt;x&lt;/b&gt;")
}
