package song

import (
	"fmt"
	"regexp"
	"strings"
)

// Uploaded file names are the only metadata that survives the external
// conversion tools, so the naming grammar below is the de facto schema:
// a base name is either a single song name or two names joined by a single
// underscore (a medley whose slides belong to both songs).
var (
	onePart  = regexp.MustCompile(`^([^_]+)$`)
	twoParts = regexp.MustCompile(`^([^_]+)_([^_]+)$`)

	// characters stripped from user titles before they become file names
	illegalTitleChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// ParseName parses a file base name (no extension) into its song name
// tokens: one token for a plain name, two for a medley. Anything else,
// including empty segments or three or more underscore-delimited segments,
// is invalid.
func ParseName(base string) ([]string, error) {

	if m := twoParts.FindStringSubmatch(base); m != nil {
		return []string{m[1], m[2]}, nil
	}

	if m := onePart.FindStringSubmatch(base); m != nil {
		return []string{m[1]}, nil
	}

	return nil, fmt.Errorf("invalid song name: %q", base)
}

// SanitizeTitle normalizes a free-form upload title into a file-safe base
// name: illegal filename characters are dropped and runs of whitespace
// become a single underscore.
// Note: a title with interior whitespace therefore becomes a medley name
// under the grammar above; that is the established convention users rely
// on to submit medleys.
func SanitizeTitle(title string) string {
	t := illegalTitleChars.ReplaceAllString(title, "")
	t = whitespace.ReplaceAllString(t, "_")
	return strings.Trim(t, "_ ")
}
