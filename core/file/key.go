package file

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/alihussnain1122/cyberoide/random"
)

// StorageKey derives a collision-resistant object key for an upload:
// courseID/<unix-millis>_<random>_<sanitized name>. The random suffix keeps
// two uploads of the same name in the same millisecond apart.
func StorageKey(courseID string, now time.Time, originalName string) string {
	return fmt.Sprintf("%s/%d_%s_%s", courseID, now.UnixMilli(), random.String(6), SanitizeName(originalName))
}

// SanitizeName strips path separators and unsafe runes from a client-supplied
// filename and collapses whitespace runs to a single underscore. The result
// is safe to embed in an object key; an empty or fully-stripped name becomes
// "file".
func SanitizeName(name string) string {
	// Drop any client-supplied directory part first.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	space := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			space = true
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r < 0x20:
			// unsafe, dropped
		default:
			if space && b.Len() > 0 {
				b.WriteByte('_')
			}
			space = false
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
