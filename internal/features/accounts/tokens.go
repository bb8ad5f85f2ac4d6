package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"serotonyl.ru/lifeleveling/internal/common"
)

// Claims — содержимое токена сессии.
type Claims struct {
	AccountID int64 `json:"account_id"`
	jwt.RegisteredClaims
}

// TokenIssuer выпускает и проверяет токены сессий HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer создаёт выпускающего токены с секретом JWT_SECRET и сроком JWT_TTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue выпускает токен для аккаунта и возвращает его вместе со сроком действия.
func (t *TokenIssuer) Issue(accountID int64) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(accountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, expires, nil
}

// Parse проверяет подпись и срок токена и возвращает ID аккаунта.
// Любая проблема с токеном — common.ErrInvalidToken.
func (t *TokenIssuer) Parse(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return 0, common.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.AccountID <= 0 {
		return 0, common.ErrInvalidToken
	}
	return claims.AccountID, nil
}
