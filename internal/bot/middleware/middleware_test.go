package middleware

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
)

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "привет", Truncate("привет", 6))
	assert.Equal(t, "при...", Truncate("привет", 3))
	assert.Equal(t, "", Truncate("", 3))
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic()
		panic("boom")
	})
}

func TestLogMessageWithoutSender(t *testing.T) {
	assert.NotPanics(t, func() {
		LogMessage(nil)
		LogMessage(&telego.Message{Chat: telego.Chat{ID: 1}, Text: "канал"})
	})
}
