package reply

import (
	"context"
	"sync"
)

// Message — сообщение, сохранённое Recorder.
type Message struct {
	ChatID int64
	Text   string
	HTML   bool
}

// Recorder — Sender, который ничего не отправляет, а запоминает сообщения.
// Используется в тестах обработчиков и при запуске без бота.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send запоминает обычный текст.
func (r *Recorder) Send(_ context.Context, chatID int64, text string) error {
	r.record(Message{ChatID: chatID, Text: text})
	return nil
}

// SendHTML запоминает текст с разметкой.
func (r *Recorder) SendHTML(_ context.Context, chatID int64, text string) error {
	r.record(Message{ChatID: chatID, Text: text, HTML: true})
	return nil
}

func (r *Recorder) record(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages возвращает копию сохранённых сообщений.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last возвращает текст последнего сообщения или пустую строку.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1].Text
}
