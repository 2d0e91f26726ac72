package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one entry of a conversation. It is appended to only while
// Loading is set; afterwards it is treated as immutable.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Role      Role   `json:"role"`
	Timestamp int64  `json:"timestamp_ms"`
	Loading   bool   `json:"loading,omitempty"`
	Thinking  bool   `json:"thinking,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Display returns the trimmed text shown to the user.
func (m Message) Display() string { return strings.TrimSpace(m.Text) }

// IsUser reports whether the user authored the message.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// IsEmpty reports whether the message has no visible content.
func (m Message) IsEmpty() bool { return m.Display() == "" }

// Conversation is a persisted chat session. Messages are in chronological order.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	ModelID   string    `json:"model_id"`
	Messages  []Message `json:"messages"`
}

const previewRunes = 40

// Preview returns the start of the last settled, non-blank message.
func (c Conversation) Preview() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m.Loading || m.IsEmpty() {
			continue
		}
		return Truncate(m.Display(), previewRunes)
	}
	return ""
}

// LastActivity is the timestamp of the newest message, or CreatedAt.
func (c Conversation) LastActivity() time.Time {
	if n := len(c.Messages); n > 0 {
		return time.UnixMilli(c.Messages[n-1].Timestamp)
	}
	return c.CreatedAt
}

// Truncate cuts s to at most n runes and appends "..." when it was cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// Transition is a thinking-state change inside a streamed delta. At is the
// byte offset in the delta's visible text where the new state begins.
type Transition struct {
	At       int  `json:"at"`
	Thinking bool `json:"thinking"`
}
