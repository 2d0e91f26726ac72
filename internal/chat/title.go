package chat

import (
	"strings"
	"time"

	"llmchatd/pkg/types"
)

const (
	autoTitlePrefix = "Chat ("
	titleRunes      = 25
	titleModelRunes = 10
)

// autoTitle names a conversation before it has any user message.
func autoTitle(modelID string, at time.Time) string {
	r := []rune(modelID)
	if len(r) > titleModelRunes {
		r = r[:titleModelRunes]
	}
	return autoTitlePrefix + string(r) + ".. " + at.Format("15:04:05") + ")"
}

// retitle replaces an automatic title with the start of the first user
// message. Titles set by the user are kept.
func retitle(c types.Conversation) string {
	if !strings.HasPrefix(c.Title, autoTitlePrefix) {
		return c.Title
	}
	for _, m := range c.Messages {
		if m.IsUser() && !m.IsEmpty() {
			return types.Truncate(m.Display(), titleRunes)
		}
	}
	return c.Title
}
