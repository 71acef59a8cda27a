package upload

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExt(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{filename: "report.pdf", want: ".pdf"},
		{filename: "archive.tar.gz", want: ".gz"},
		{filename: "README", want: ""},
		{filename: ".bashrc", want: ".bashrc"},
		{filename: "trailing.", want: "."},
		{filename: "dir.v2/notes", want: ""},
		{filename: `C:\Users\me\essay.DOCX`, want: ".DOCX"},
		{filename: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Ext(tt.filename))
		})
	}
}

var keyRegex = regexp.MustCompile(`^[0-9a-f]{32}(\.[^/]*)?$`)

func TestGenerateKey(t *testing.T) {
	for _, name := range []string{"report.pdf", "no extension", "../../etc/passwd", "photo.final.JPG"} {
		key := GenerateKey(name)
		assert.Regexp(t, keyRegex, key)
		assert.Equal(t, Ext(name), key[32:])
		assert.NotContains(t, key, "report")
	}
}

func TestGenerateKey_unique(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 1M key generation in short mode")
	}

	const samples = 1_000_000
	seen := make(map[string]struct{}, samples)
	for i := 0; i < samples; i++ {
		key := GenerateKey("x")
		if _, ok := seen[key]; ok {
			t.Fatalf("duplicate key %q after %d samples", key, i)
		}
		seen[key] = struct{}{}
	}
}
