package batch

import "sync/atomic"

// Token is the cooperative cancellation flag shared between the controlling
// surface and the worker. Exactly one writer calls Cancel; the runner reads
// it before each step. Setting the token never aborts a call already in
// flight.
type Token struct {
	flag atomic.Bool
}

// NewToken returns an unset token.
func NewToken() *Token {
	return &Token{}
}

// Cancel sets the flag. Safe to call more than once.
func (t *Token) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.flag.Load()
}
