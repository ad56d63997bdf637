package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderBot, SenderSystem:
		return true
	}
	return false
}

// Text bounds, counted in runes after trimming.
const (
	MinTextLen = 1
	MaxTextLen = 1000
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrEmptyText   = errors.New("message text is empty")
	ErrTextTooLong = fmt.Errorf("message text exceeds %d characters", MaxTextLen)
)

// Message is one persisted chat entry. The JSON shape is the
// {sender, message, timestamp} triple kept in the storage slot.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage trims text and normalizes the timestamp to UTC milliseconds.
func NewMessage(sender Sender, text string, at time.Time) Message {
	return Message{Sender: sender, Text: strings.TrimSpace(text), Timestamp: NormalizeTime(at)}
}

func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// ValidateText returns the trimmed text or the reason it is out of bounds.
func ValidateText(s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case n < MinTextLen:
		return "", ErrEmptyText
	case n > MaxTextLen:
		return "", ErrTextTooLong
	}
	return s, nil
}

type wireMessage struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		Sender:    m.Sender,
		Text:      m.Text,
		Timestamp: m.Timestamp.UTC().Format(TimestampLayout),
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("message timestamp: %w", err)
	}
	m.Sender = w.Sender
	m.Text = w.Text
	m.Timestamp = NormalizeTime(ts)
	return nil
}
