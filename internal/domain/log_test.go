package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowMode_String(t *testing.T) {
	assert.Equal(t, "head", WindowHead.String())
	assert.Equal(t, "tail", WindowTail.String())
}

func TestParseWindowMode(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowMode
		wantErr bool
	}{
		{"head", WindowHead, false},
		{"tail", WindowTail, false},
		{" TAIL ", WindowTail, false},
		{"middle", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowMode(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "web_1", "web_1"},
		{"leading slash", "/web_1", "_web_1"},
		{"nested", "project/web/1", "project_web_1"},
		{"backslash", `a\b`, "a_b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeDisplayName(tt.in))
		})
	}
}

func TestSearchResult_Counts(t *testing.T) {
	r := SearchResult{}
	assert.True(t, r.IsEmpty())
	assert.Equal(t, 0, r.TotalMatches())

	r.Files = []SearchFileResult{
		{Path: "/a", Matches: []SearchMatch{{LineNumber: 1}, {LineNumber: 4}}},
		{Path: "/b", Matches: []SearchMatch{{LineNumber: 2}}},
	}
	assert.False(t, r.IsEmpty())
	assert.Equal(t, 3, r.TotalMatches())
}
