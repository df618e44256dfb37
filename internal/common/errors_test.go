package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	for _, target := range []error{ErrorNotFound, ErrMissingRegion, ErrForbiddenRegion, ErrInvalidToken} {
		wrapped := fmt.Errorf("layer: %w", target)
		assert.True(t, errors.Is(wrapped, target), target.Error())
	}
	assert.False(t, errors.Is(ErrMissingRegion, ErrorNotFound))
}
