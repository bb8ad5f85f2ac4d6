package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/config"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		text    string
		cmd     string
		args    []string
		command bool
	}{
		{"!профиль", "профиль", nil, true},
		{".Профиль", "профиль", nil, true},
		{"/start", "start", nil, true},
		{"/start@lifeleveling_bot", "start", nil, true},
		{"  !выполнить  a1b2c3d4   вчера ", "выполнить", []string{"a1b2c3d4", "вчера"}, true},
		{"!добавить сегодня 07:30 ежедневно Утренняя зарядка", "добавить",
			[]string{"сегодня", "07:30", "ежедневно", "Утренняя", "зарядка"}, true},
		{"привет", "", nil, false},
		{"!", "", nil, false},
		{"!   ", "", nil, false},
		{"/@bot", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := p.ParseCommand(tt.text)
		assert.Equal(t, tt.command, ok, tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}

func newTestBot(t *testing.T) (*Bot, *reply.Recorder) {
	t.Helper()
	rec := &reply.Recorder{}
	b := New(nil, rec, &config.Config{
		BotMaxInflight:    4,
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
	}, nil, Handlers{})
	t.Cleanup(b.rateLimiter.Close)
	return b, rec
}

func TestRouteHelpAndUnknown(t *testing.T) {
	b, rec := newTestBot(t)
	ctx := context.Background()

	b.routeCommand(ctx, 10, 100, 1, "help", nil)
	assert.Equal(t, helpText, rec.Last())

	b.routeCommand(ctx, 10, 100, 1, "абракадабра", nil)
	assert.Contains(t, rec.Last(), "Неизвестная команда «абракадабра»")

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(10), msgs[0].ChatID)
}

func TestRouteDisabledFeatures(t *testing.T) {
	b, rec := newTestBot(t)
	ctx := context.Background()

	b.routeCommand(ctx, 10, 100, 1, "огонек", nil)
	assert.Contains(t, rec.Last(), "отключены")

	b.routeCommand(ctx, 10, 100, 1, "значки", nil)
	assert.Contains(t, rec.Last(), "отключены")
}

func TestNewDefaultsInflight(t *testing.T) {
	b := New(nil, &reply.Recorder{}, &config.Config{RateLimitRequests: 1, RateLimitWindow: time.Second}, nil, Handlers{})
	defer b.rateLimiter.Close()
	assert.Equal(t, 64, cap(b.inflight))
}
