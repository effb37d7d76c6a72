package conversation

import "errors"

var (
	// ErrEmptyQuery is returned by Submit for empty or whitespace-only text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrBusy is returned by Submit while another request is outstanding.
	ErrBusy = errors.New("a request is already pending")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("conversation is closed")
)
