// Package prompt turns user input plus history into the text a model expects
// and reclassifies streamed output into visible and thinking text.
//
// The formatter is a tagged variant: a Formatter value carries its Style and
// every operation switches on it. Formatters are selected per model from the
// catalog, never by subclassing.
package prompt

import (
	"strings"

	"llmchatd/pkg/types"
)

// Sentinels are the literal marker strings used by the reasoning style.
type Sentinels struct {
	SeqStart   string
	User       string
	Assistant  string
	ThinkStart string
	ThinkEnd   string
}

// DefaultSentinels are the DeepSeek-R1 style markers.
var DefaultSentinels = Sentinels{
	SeqStart:   "<｜begin▁of▁sentence｜>",
	User:       "<｜User｜>",
	Assistant:  "<｜Assistant｜>",
	ThinkStart: "<think>",
	ThinkEnd:   "</think>",
}

// Formatter formats prompts and post-processes output for one prompt style.
// The zero value is a generic formatter.
type Formatter struct {
	Style     types.PromptStyle
	Sentinels Sentinels
}

// For returns the formatter configured for m.
func For(m types.Model) Formatter {
	return New(m.Style)
}

// New returns a formatter for style with default sentinels.
func New(style types.PromptStyle) Formatter {
	if style == types.StyleReasoning {
		return Formatter{Style: style, Sentinels: DefaultSentinels}
	}
	return Formatter{Style: types.StyleGeneric}
}

func (f Formatter) reasoning() bool { return f.Style == types.StyleReasoning }

// FormatPrompt builds the engine input for newText given the prior history.
//
// The generic style re-injects history as "role: text" lines and ends with a
// model-turn cue. The reasoning style wraps only newText: the engine session
// already holds earlier turns.
func (f Formatter) FormatPrompt(newText string, history []types.Message) string {
	if f.reasoning() {
		s := f.Sentinels
		return s.SeqStart + s.User + newText + s.Assistant
	}
	var b strings.Builder
	for _, m := range history {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Display())
		b.WriteByte('\n')
	}
	b.WriteString(string(types.RoleUser))
	b.WriteString(": ")
	b.WriteString(newText)
	b.WriteByte('\n')
	b.WriteString(string(types.RoleModel))
	b.WriteString(": ")
	return b.String()
}

// Processed is the classification of one streamed delta.
type Processed struct {
	// Text is the visible text this delta contributes.
	Text string
	// Transitions lists thinking-state changes completed by this delta, in
	// order, with offsets into Text.
	Transitions []types.Transition
}

// Thinking returns the state after the last transition, or nil when the delta
// changed nothing.
func (p Processed) Thinking() *bool {
	if n := len(p.Transitions); n > 0 {
		v := p.Transitions[n-1].Thinking
		return &v
	}
	return nil
}

// ProcessPartial classifies delta, given buffer, the raw text already
// received for the same response.
//
// Sentinels are removed from the visible text and each one reports a
// transition only the first time it completes in the response. A trailing
// fragment that may still become a sentinel is held back and released by a
// later delta or by Flush, so the concatenated Text does not depend on how the
// response was chunked.
//
// ProcessPartial rescans buffer on every call. Streams use a Scanner instead.
func (f Formatter) ProcessPartial(delta, buffer string) Processed {
	s := f.NewScanner()
	s.Push(buffer)
	return s.Push(delta)
}

// Flush releases text held back at the end of a response. It returns the
// empty string when nothing is pending.
func (f Formatter) Flush(buffer string) string {
	s := f.NewScanner()
	s.Push(buffer)
	return s.Flush()
}

// Scanner classifies one response delta by delta. It keeps only the held
// back fragment between calls, so a response is scanned once.
type Scanner struct {
	f              Formatter
	pending        string
	started, ended bool
}

// NewScanner returns a Scanner for one response.
func (f Formatter) NewScanner() *Scanner { return &Scanner{f: f} }

// Push classifies the next delta. The results are the same as
// ProcessPartial with the previously pushed text as buffer.
func (s *Scanner) Push(delta string) Processed {
	if !s.f.reasoning() {
		return Processed{Text: delta}
	}
	raw := s.pending + delta
	res := s.f.scan(raw, true)
	s.pending = raw[len(raw)-res.held:]
	p := Processed{Text: res.text}
	if res.startAt >= 0 && !s.started {
		s.started = true
		p.Transitions = append(p.Transitions, types.Transition{At: clamp(res.startAt, len(p.Text)), Thinking: true})
	}
	if res.endAt >= 0 && !s.ended {
		s.ended = true
		p.Transitions = append(p.Transitions, types.Transition{At: clamp(res.endAt, len(p.Text)), Thinking: false})
	}
	if len(p.Transitions) == 2 && p.Transitions[1].At < p.Transitions[0].At {
		p.Transitions[0], p.Transitions[1] = p.Transitions[1], p.Transitions[0]
	}
	return p
}

// Flush releases the held back fragment.
func (s *Scanner) Flush() string {
	out := s.pending
	s.pending = ""
	return out
}

// ProcessFinal strips every sentinel and trims whitespace. Stripping repeats
// until no sentinel is left, which makes the result idempotent.
func (f Formatter) ProcessFinal(full string) string {
	if !f.reasoning() {
		return strings.TrimSpace(full)
	}
	for {
		next := f.scan(full, false).text
		if next == full {
			break
		}
		full = next
	}
	return strings.TrimSpace(full)
}

type scanResult struct {
	text    string
	startAt int // offset in text of the first start sentinel, or -1
	endAt   int // offset in text of the first end sentinel, or -1
	held    int // bytes of raw left out at the end
}

// scan removes thinking sentinels from raw. With hold set, a suffix of raw
// that is a proper prefix of a sentinel is left out of the result.
func (f Formatter) scan(raw string, hold bool) scanResult {
	res := scanResult{startAt: -1, endAt: -1}
	markers := [2]string{f.Sentinels.ThinkStart, f.Sentinels.ThinkEnd}
	var b strings.Builder
	i := 0
	for {
		pos, which := -1, -1
		for k, mk := range markers {
			if mk == "" {
				continue
			}
			if j := strings.Index(raw[i:], mk); j >= 0 && (pos < 0 || j < pos) {
				pos, which = j, k
			}
		}
		if pos < 0 {
			break
		}
		b.WriteString(raw[i : i+pos])
		if which == 0 && res.startAt < 0 {
			res.startAt = b.Len()
		}
		if which == 1 && res.endAt < 0 {
			res.endAt = b.Len()
		}
		i += pos + len(markers[which])
	}
	tail := raw[i:]
	if hold {
		res.held = pendingPrefix(tail, markers[:])
		tail = tail[:len(tail)-res.held]
	}
	b.WriteString(tail)
	res.text = b.String()
	return res
}

// pendingPrefix returns the length of the longest suffix of s that is a
// proper, non-empty prefix of one of markers.
func pendingPrefix(s string, markers []string) int {
	best := 0
	for _, mk := range markers {
		n := len(mk) - 1
		if n > len(s) {
			n = len(s)
		}
		for ; n > best; n-- {
			if strings.HasSuffix(s, mk[:n]) {
				best = n
				break
			}
		}
	}
	return best
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
