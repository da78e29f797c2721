package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		basename   string
		wantNumber int
		wantBase   string
		wantFound  bool
	}{
		{"disc-(12)-extra", 12, "disc", true},
		{"disc（7", 7, "disc", true},
		{"discname", -1, "", false},
		{"disc-()", -1, "disc", true},
		{"sample-(3)", 3, "sample", true},
		{"a(1)-b(2)", 2, "a(1)-b", true},
		{"a（1）-b(2)", 2, "a（1）-b", true},
		{"a(1)-b（5）", 5, "a(1)-b", true},
		{"tree--(abc 42x7)", 42, "tree", true},
		{"disc-(０３)", 3, "disc", true},
		{"-(8)", 8, "", true},
		{"(", -1, "", true},
		{"disc-(99999999999999999999999)", -1, "disc", true},
		{"", -1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.basename, func(t *testing.T) {
			n, base, found := ExtractNumber(tt.basename)
			assert.Equal(t, tt.wantNumber, n)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestNamer(t *testing.T) {
	tests := []struct {
		name     string
		basename string
		ext      string
		want     []string
	}{
		{"numbered", "sample-(3)", "jpg", []string{"sample-3.jpg", "sample-4.jpg"}},
		{"plain", "discname", "jpg", []string{"discname-0.jpg", "discname-1.jpg"}},
		{"paren without digits", "disc-()", "jpg", []string{"disc-()-0.jpg", "disc-()-1.jpg"}},
		{"zero offset", "plate(0)", "png", []string{"plate-0.png", "plate-1.png"}},
		{"full width", "样本（10）", "webp", []string{"样本-10.webp", "样本-11.webp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNamer(tt.basename, tt.ext)
			for idx, want := range tt.want {
				assert.Equal(t, want, n.Name(idx))
			}
		})
	}
}

func TestNamer_Numbered(t *testing.T) {
	assert.True(t, NewNamer("a-(1)", "jpg").Numbered())
	assert.False(t, NewNamer("a-()", "jpg").Numbered())
	assert.False(t, NewNamer("a", "jpg").Numbered())
}

func TestStem(t *testing.T) {
	assert.Equal(t, "sample-(3)", Stem("/data/in/sample-(3).jpg"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))
	assert.Equal(t, "noext", Stem("dir/noext"))
}
