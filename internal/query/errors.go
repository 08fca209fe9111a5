package query

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when the repositories table was never loaded.
	ErrEmptyDataset = errors.New("dataset unavailable")
	// ErrUnsupportedIntent is returned when an utterance matches no known intent.
	ErrUnsupportedIntent = errors.New("unsupported intent")
	// ErrInvalidFilter wraps every FilterSet validation failure.
	ErrInvalidFilter = errors.New("invalid filter")
)

// UnresolvedEntityError names an utterance token that matched no value in
// the dataset.
type UnresolvedEntityError struct {
	Token     string
	Dimension string
}

func (e *UnresolvedEntityError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("unresolved entity %q", e.Token)
	}
	return fmt.Sprintf("unresolved %s %q", e.Dimension, e.Token)
}
