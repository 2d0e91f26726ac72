package llm

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// CloseQuietly closes c and never fails. Already-closed conditions are
// ignored; any other error is logged as a warning.
func CloseQuietly(log zerolog.Logger, what string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !errors.Is(err, ErrClosed) {
		log.Warn().Err(err).Str("resource", what).Msg("llm event=close_failed")
	}
}
