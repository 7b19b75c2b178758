package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentRef(t *testing.T) {
	cases := []struct {
		path string
		kind DocumentKind
		ok   bool
	}{
		{"/inbox/scan.pdf", KindPDF, true},
		{"/inbox/SCAN.PDF", KindPDF, true},
		{"photo.JPeG", KindImage, true},
		{"page.tif", KindImage, true},
		{"page.bmp", KindImage, true},
		{"notes.txt", "", false},
		{"noext", "", false},
	}
	for _, tc := range cases {
		ref, ok := NewDocumentRef(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.kind, ref.Kind, tc.path)
	}
}

func TestParseProviderType(t *testing.T) {
	p, err := ParseProviderType(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProviderType("mistral")
	assert.ErrorContains(t, err, "invalid VLM_PROVIDER")
}

func TestFilingSuggestionString(t *testing.T) {
	s := FilingSuggestion{Filename: "20240101 Electric Bill.pdf", Destination: "Finances/Bills"}
	assert.Equal(t, "Finances/Bills/20240101 Electric Bill.pdf", s.String())
}
