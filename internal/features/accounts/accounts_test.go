package accounts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lifeleveling/internal/common"
)

const testSecret = "test-secret-test-secret-test-secret"

var accountCols = []string{
	"id", "telegram_id", "telegram_username", "email", "password_hash",
	"display_name", "is_banned", "created_at", "updated_at",
}

func newMockService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewService(NewRepository(mock), NewTokenIssuer(testSecret, time.Hour)), mock
}

func emailRow(id int64, email, hash string, banned bool) *pgxmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(accountCols).
		AddRow(id, (*int64)(nil), "", &email, hash, "Анна", banned, now, now)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))

	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("correct horsE", hash))

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "соль должна быть случайной")
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, bad := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
	} {
		assert.False(t, VerifyPassword("pw", bad), bad)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, expires, err := issuer.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, _, err := issuer.Issue(42)
	require.NoError(t, err)

	t.Run("чужой секрет", func(t *testing.T) {
		_, err := NewTokenIssuer("another-secret-another-secret-xx", time.Hour).Parse(token)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("истёк", func(t *testing.T) {
		late := NewTokenIssuer(testSecret, time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(token)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("мусор", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("без срока", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{AccountID: 42}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Parse(raw)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("другой алгоритм", func(t *testing.T) {
		claims := Claims{AccountID: 42, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Parse(raw)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})
}

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("anna@example.com"))
	for _, bad := range []string{"", "anna", "@example.com", "anna@", "a@b@c", "an na@example.com"} {
		assert.False(t, validEmail(bad), bad)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "anna", "long-enough", "")
	assert.ErrorIs(t, err, common.ErrInvalidEmail)

	_, err = svc.SignUp(ctx, "anna@example.com", "коротко", "")
	assert.ErrorIs(t, err, common.ErrWeakPassword)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpRunsHooks(t *testing.T) {
	svc, mock := newMockService(t)

	var provisioned []int64
	svc.OnCreate(func(_ context.Context, acc *Account) error {
		provisioned = append(provisioned, acc.ID)
		return nil
	})

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("anna@example.com", pgxmock.AnyArg(), "anna").
		WillReturnRows(emailRow(5, "anna@example.com", "$argon2id$...", false))

	acc, err := svc.SignUp(context.Background(), "  Anna@Example.com ", "long-enough", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), acc.ID)
	assert.Equal(t, []int64{5}, provisioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpEmailTaken(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("anna@example.com", pgxmock.AnyArg(), "Анна").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := svc.SignUp(context.Background(), "anna@example.com", "long-enough", "Анна")
	assert.ErrorIs(t, err, common.ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignIn(t *testing.T) {
	hash, err := HashPassword("long-enough")
	require.NoError(t, err)

	t.Run("успех", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectQuery("FROM accounts WHERE LOWER\\(email\\)").
			WithArgs("anna@example.com").
			WillReturnRows(emailRow(5, "anna@example.com", hash, false))

		token, acc, err := svc.SignIn(context.Background(), "anna@example.com", "long-enough")
		require.NoError(t, err)
		assert.Equal(t, int64(5), acc.ID)

		id, err := svc.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(5), id)
	})

	t.Run("неверный пароль", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectQuery("FROM accounts WHERE LOWER\\(email\\)").
			WithArgs("anna@example.com").
			WillReturnRows(emailRow(5, "anna@example.com", hash, false))

		_, _, err := svc.SignIn(context.Background(), "anna@example.com", "wrong-password")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("неизвестный email", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectQuery("FROM accounts WHERE LOWER\\(email\\)").
			WithArgs("ghost@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, _, err := svc.SignIn(context.Background(), "ghost@example.com", "long-enough")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("заблокирован", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectQuery("FROM accounts WHERE LOWER\\(email\\)").
			WithArgs("anna@example.com").
			WillReturnRows(emailRow(5, "anna@example.com", hash, true))

		_, _, err := svc.SignIn(context.Background(), "anna@example.com", "long-enough")
		assert.ErrorIs(t, err, common.ErrBanned)
	})
}

func TestEnsureTelegramAccountHooksOnlyOnCreate(t *testing.T) {
	svc, mock := newMockService(t)

	hooks := 0
	svc.OnCreate(func(context.Context, *Account) error {
		hooks++
		return nil
	})

	profile := TelegramProfile{TelegramID: 100, Username: "anna", FirstName: "Анна", LastName: "К."}
	tgID := int64(100)
	now := time.Now()
	cols := append(append([]string{}, accountCols...), "inserted")

	for _, inserted := range []bool{true, false} {
		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs(int64(100), "anna", "Анна К.").
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow(int64(9), &tgID, "anna", (*string)(nil), "", "Анна К.", false, now, now, inserted))
	}

	for i := 0; i < 2; i++ {
		acc, err := svc.EnsureTelegramAccount(context.Background(), profile)
		require.NoError(t, err)
		assert.Equal(t, int64(9), acc.ID)
		require.NotNil(t, acc.TelegramID)
		assert.Equal(t, int64(100), *acc.TelegramID)
	}
	assert.Equal(t, 1, hooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByRef(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectQuery("WHERE LOWER\\(telegram_username\\)").
		WithArgs("anna").
		WillReturnRows(emailRow(5, "anna@example.com", "", false))
	acc, err := svc.Find(ctx, "@anna")
	require.NoError(t, err)
	assert.Equal(t, int64(5), acc.ID)

	mock.ExpectQuery("WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)
	_, err = svc.Find(ctx, "7")
	assert.ErrorIs(t, err, common.ErrAccountNotFound)

	_, err = svc.Find(ctx, "abc")
	assert.ErrorIs(t, err, common.ErrAccountNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBannedUnknownAccount(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec("UPDATE accounts SET is_banned").
		WithArgs(int64(3), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := svc.SetBanned(context.Background(), 3, true)
	assert.ErrorIs(t, err, common.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountName(t *testing.T) {
	email := "anna@example.com"
	assert.Equal(t, "Анна", (&Account{DisplayName: "Анна"}).Name())
	assert.Equal(t, "@anna", (&Account{TelegramUsername: "anna"}).Name())
	assert.Equal(t, email, (&Account{Email: &email}).Name())
	assert.Equal(t, "аккаунт #3", (&Account{ID: 3}).Name())

	assert.Equal(t, "anna", TelegramProfile{Username: "anna"}.DisplayName())
}
