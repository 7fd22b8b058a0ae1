package punch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"plain two words", "Said Bouzit", []string{"Said", "Bouzit"}},
		{"underscore separator", "SAID_BOUZIT", []string{"SAID", "BOUZIT"}},
		{"hyphen separator", "Jean-Pierre Martin", []string{"Jean", "Pierre", "Martin"}},
		{"mixed separators and spaces", " a_b-c  d ", []string{"a", "b", "c", "d"}},
		{"empty", "", nil},
		{"only separators", "_-_ -", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokens(tt.input))
		})
	}
}

func TestNameKey(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		sameKey bool
	}{
		{"case insensitive", "Said Bouzit", "SAID BOUZIT", true},
		{"underscore equals space", "Said_Bouzit", "said bouzit", true},
		{"extra whitespace collapsed", "  Said   Bouzit ", "Said Bouzit", true},
		{"different people differ", "Said Bouzit", "Said Bouzid", false},
		{"accent is significant", "Andre Martin", "André Martin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.sameKey {
				assert.Equal(t, NameKey(tt.a), NameKey(tt.b))
			} else {
				assert.NotEqual(t, NameKey(tt.a), NameKey(tt.b))
			}
		})
	}
}

func TestNameKeyNFCEquivalence(t *testing.T) {
	// Precomposed é (U+00E9) and decomposed e+combining acute (U+0065 U+0301)
	// must produce the same key.
	precomposed := "André Martin"
	decomposed := "André Martin"
	assert.Equal(t, NameKey(precomposed), NameKey(decomposed))
}

func TestCleanFullName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SAID_BOUZIT", "Said Bouzit"},
		{"  said   bouzit ", "Said Bouzit"},
		{"jean-pierre martin", "Jean Pierre Martin"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CleanFullName(tt.input), "input %q", tt.input)
	}
}

func TestIsTwoWordName(t *testing.T) {
	assert.True(t, IsTwoWordName("Said Bouzit"))
	assert.True(t, IsTwoWordName("SAID_BOUZIT"))
	assert.True(t, IsTwoWordName("a b c"))
	assert.False(t, IsTwoWordName("Said"))
	assert.False(t, IsTwoWordName(""))
	assert.False(t, IsTwoWordName("   "))
}

func TestIsAdminish(t *testing.T) {
	assert.True(t, IsAdminish("admin"))
	assert.True(t, IsAdminish("Admin"))
	assert.True(t, IsAdminish("ADMINISTRATOR"))
	assert.True(t, IsAdminish("  administrator "))
	assert.False(t, IsAdminish("admin user"))
	assert.False(t, IsAdminish("Said Bouzit"))
	assert.False(t, IsAdminish(""))
}

func TestNormalizeBioID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"007", "7"},
		{" 0 0 7 ", "7"},
		{"7", "7"},
		{"000", "0"},
		{"0", "0"},
		{"42", "42"},
		{"", ""},
		{"   ", ""},
		{"A01", "A01"},
		{"00A1", "A1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeBioID(tt.input), "input %q", tt.input)
	}
}

func TestValidBioID(t *testing.T) {
	assert.True(t, ValidBioID("1"))
	assert.True(t, ValidBioID("0"))
	assert.True(t, ValidBioID("1234567890"))
	assert.False(t, ValidBioID(""))
	assert.False(t, ValidBioID("12345678901"))
	assert.False(t, ValidBioID("12a"))
	assert.False(t, ValidBioID("-1"))
	assert.False(t, ValidBioID("1 2"))
}

func TestSanitizeDeviceName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short name unchanged", "Said Bouzit", "Said Bouzit"},
		{"non-ascii dropped", "André Martin", "Andr Martin"},
		{"cut at word boundary", "Christopher Alexander Montgomery", "Christopher Alexander"},
		{"exactly at limit", "abcdefghij klmnopqrstuvw", "abcdefghij klmnopqrstuvw"},
		{"single long word truncated", "abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstuvwx"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeDeviceName(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, len(got), 24)
		})
	}
}
