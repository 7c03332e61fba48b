package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errStale = New(KindConflict, "stale version")

func TestIsMatchesSentinelAndKind(t *testing.T) {
	err := errStale.WithIDs("flight-1")

	assert.ErrorIs(t, err, errStale)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "stale version [flight-1]", err.Error())
}

func TestWrapKeepsCauseAndSentinel(t *testing.T) {
	err := errStale.Wrap(context.DeadlineExceeded).WithIDs("a", "b")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, errStale)
	assert.Equal(t, []string{"a", "b"}, err.IDs)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("mutate: %w", New(KindState, "flight cancelled"))

	assert.Equal(t, KindState, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
