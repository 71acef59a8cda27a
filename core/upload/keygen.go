package upload

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// GenerateKey returns a storage key made of 32 random hex characters followed by
// the extension of original (".pdf" for "report.pdf", "" when there is none).
// The original name never ends up in the key.
func GenerateKey(original string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + Ext(original)
}

// Ext returns the text from the last "." of the base name, dot included.
func Ext(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i:]
	}
	return ""
}
