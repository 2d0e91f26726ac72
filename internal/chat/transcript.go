// Package chat turns generation streams into persisted conversations.
package chat

import (
	"time"

	"llmchatd/internal/manager"
	"llmchatd/internal/prompt"
	"llmchatd/pkg/types"
)

// Transcript assembles the model messages of one reply from stream deltas.
//
// Thinking and answer text end up in separate messages. When the thinking
// state flips, the current message takes the new state if it is still blank;
// otherwise it is closed and a new message starts. A blank thinking bubble is
// therefore never produced.
type Transcript struct {
	format prompt.Formatter
	now    func() time.Time
	newID  func() string
	msgs   []types.Message
}

// NewTranscript starts a reply with one loading, non-thinking message.
func NewTranscript(f prompt.Formatter, now func() time.Time, newID func() string) *Transcript {
	t := &Transcript{format: f, now: now, newID: newID}
	t.start(false)
	return t
}

func (t *Transcript) start(thinking bool) {
	t.msgs = append(t.msgs, types.Message{
		ID:        t.newID(),
		Role:      types.RoleModel,
		Timestamp: t.now().UnixMilli(),
		Loading:   true,
		Thinking:  thinking,
	})
}

func (t *Transcript) current() *types.Message { return &t.msgs[len(t.msgs)-1] }

// Apply adds one delta. Terminal deltas carry no text beyond a flushed tail
// and are applied the same way.
func (t *Transcript) Apply(d manager.Delta) {
	pos := 0
	for _, tr := range d.Transitions {
		at := tr.At
		if at < pos {
			at = pos
		}
		if at > len(d.Text) {
			at = len(d.Text)
		}
		t.current().Text += d.Text[pos:at]
		pos = at
		t.setThinking(tr.Thinking)
	}
	t.current().Text += d.Text[pos:]
}

func (t *Transcript) setThinking(v bool) {
	cur := t.current()
	if cur.Thinking == v {
		return
	}
	if cur.IsEmpty() {
		cur.Thinking = v
		return
	}
	t.settle(cur)
	t.start(v)
}

func (t *Transcript) settle(m *types.Message) {
	m.Loading = false
	m.Text = t.format.ProcessFinal(m.Text)
}

// Finish settles the reply. A non-nil err is recorded on the last message,
// which keeps any partial text.
func (t *Transcript) Finish(err error) {
	cur := t.current()
	t.settle(cur)
	if err != nil {
		cur.Error = err.Error()
		return
	}
	// Drop a trailing blank message left by a final transition.
	if cur.IsEmpty() && len(t.msgs) > 1 {
		t.msgs = t.msgs[:len(t.msgs)-1]
	}
}

// Messages returns a copy of the assembled messages.
func (t *Transcript) Messages() []types.Message {
	out := make([]types.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}
