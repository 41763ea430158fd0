package filestore

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client supplied filename to a safe base name.
// Non-ASCII characters are decomposed and dropped, path separators become
// word breaks, whitespace runs become a single underscore and leading or
// trailing dots and underscores are trimmed. "../../etc/passwd" becomes
// "etc_passwd". Names longer than MaxFilenameLength are shortened, keeping
// the extension. The result may be empty.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	ascii.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	cleaned := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	cleaned = strings.Join(strings.Fields(cleaned), "_")
	cleaned = unsafeFilenameChars.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(cleaned, "._")

	if len(cleaned) > constants.MaxFilenameLength {
		ext := filepath.Ext(cleaned)
		if len(ext) >= constants.MaxFilenameLength/2 {
			ext = ""
		}
		cleaned = strings.TrimRight(cleaned[:constants.MaxFilenameLength-len(ext)], "._") + ext
	}
	return cleaned
}
