// Package split partitions job inputs into ordered, bounded units for inference.
package split

import "errors"

var (
	// ErrUnreadableInput is returned when an input cannot be decoded or parsed.
	ErrUnreadableInput = errors.New("unreadable input")
	// ErrEmptyInput is returned when an input has no content.
	ErrEmptyInput = errors.New("empty input")
)
