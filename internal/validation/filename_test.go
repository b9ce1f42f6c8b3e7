package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "prefix and separators removed",
			title: "Download Foo/Bar: Baz",
			want:  "FooBar Baz",
		},
		{
			name:  "no prefix",
			title: "Plain Title",
			want:  "Plain Title",
		},
		{
			name:  "all illegal characters removed",
			title: `a\b/c:d*e?f"g<h>i|j` + "\x00k",
			want:  "abcdefghijk",
		},
		{
			name:  "surrounding whitespace trimmed",
			title: "Download  DF Direct Weekly ",
			want:  "DF Direct Weekly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeTitle(tt.title)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "/")
			assert.NotContains(t, got, ":")
		})
	}
}
