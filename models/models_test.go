package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeByCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		minutes  int
		want     int
	}{
		{"movie keeps runtime", CategoryMovie, 120, 120},
		{"tv show keeps runtime", CategoryTVShow, 45, 45},
		{"book has no runtime", CategoryBook, 300, 0},
		{"game has no runtime", CategoryGame, 6000, 0},
		{"anime keeps runtime", CategoryAnime, 24, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Content{Category: tt.category, DurationMinutes: tt.minutes}
			assert.Equal(t, tt.want, c.Runtime())
		})
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"single tag", "Action", []string{"Action"}},
		{"trims whitespace", " Action , Drama ", []string{"Action", "Drama"}},
		{"drops empty entries", "Action,,Drama,", []string{"Action", "Drama"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTags(tt.input))
		})
	}
}

func TestNewUserPreferenceDefaults(t *testing.T) {
	p := NewUserPreference("u1")
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, DefaultMinYear, p.MinYear)
	assert.Equal(t, DefaultMaxYear, p.MaxYear)
	assert.Empty(t, p.PreferredGenres)
	assert.Empty(t, p.InterestTags)
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"Action", "Drama"}

	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, `["Action","Drama"]`, value)

	var scanned StringList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)
}

func TestStringListValueNil(t *testing.T) {
	var list StringList
	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}

func TestStringListScanTolerant(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nil value", nil},
		{"malformed json", "{not json"},
		{"wrong json shape", `{"a":1}`},
		{"unexpected type", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A corrupt stored profile decodes to empty, never an error.
			list := StringList{"stale"}
			require.NoError(t, list.Scan(tt.input))
			assert.Empty(t, list)
		})
	}
}

func TestStringListScanBytes(t *testing.T) {
	var list StringList
	require.NoError(t, list.Scan([]byte(`["war","sci-fi"]`)))
	assert.Equal(t, StringList{"war", "sci-fi"}, list)
}
