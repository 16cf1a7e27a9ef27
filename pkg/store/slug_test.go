package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Film Noir Club", "film-noir-club"},
		{"  trim me  ", "trim-me"},
		{"Already-Slugged", "already-slugged"},
		{"Lots   of---punctuation!!!", "lots-of-punctuation"},
		{"C++ & Go (2026)", "c-go-2026"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}
