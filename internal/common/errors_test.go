package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", &NotFoundError{Path: "/x.pdf"}, ErrNotFound},
		{"unsupported", &UnsupportedFormatError{Path: "/x.txt", Extension: ".txt"}, ErrUnsupportedFormat},
		{"extraction", &ExtractionFailure{Path: "/x.pdf", Pages: []int{0, 1}}, ErrExtractionFailed},
		{"malformed", &MalformedResponseError{Raw: "nope"}, ErrMalformedResponse},
		{"credential", &MissingCredentialError{Provider: "claude", Setting: "ANTHROPIC_API_KEY"}, ErrMissingCredential},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to analyze: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
			for _, other := range cases {
				if other.sentinel != tc.sentinel {
					assert.NotErrorIs(t, wrapped, other.sentinel)
				}
			}
		})
	}
}

func TestExtractionFailureUnwrapsCause(t *testing.T) {
	cause := errors.New("pdftoppm exited 1")
	err := &ExtractionFailure{Path: "scan.pdf", Pages: []int{0, 5, 9}, Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "pages 0,5,9")
	assert.Contains(t, err.Error(), "pdftoppm exited 1")
}

func TestMalformedResponseErrorKeepsRaw(t *testing.T) {
	var target *MalformedResponseError
	err := fmt.Errorf("analyze: %w", &MalformedResponseError{Raw: "This is not JSON"})

	require.True(t, errors.As(err, &target))
	assert.Equal(t, "This is not JSON", target.Raw)
}

func TestWrapErrorNil(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))
	assert.EqualError(t, WrapError(errors.New("boom"), "failed to store"), "failed to store: boom")
}
