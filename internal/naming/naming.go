// Package naming derives crop filenames from a source image basename.
//
// Source images are often named after the first specimen they hold, in the
// legacy form "name-(N)" (or with a full-width "（"). Crops from such an
// image continue the numbering: region 0 becomes "name-N", region 1
// "name-N+1", and so on. Images without that suffix get "basename-idx".
package naming

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

const (
	openParen         = "("
	openParenFullWide = "（"
)

// ExtractNumber finds the last opening parenthesis (half- or full-width) in
// basename and reads the first run of decimal digits after it.
//
// found is false when basename has no opening parenthesis; number is then -1
// and base is empty. Otherwise base is the text before the parenthesis with
// trailing hyphens removed, and number is the digit run, or -1 when no digit
// follows the parenthesis (or the run does not fit in an int). Text between
// the parenthesis and the first digit is skipped; the run ends at the first
// non-digit. ASCII and full-width digits are accepted.
func ExtractNumber(basename string) (number int, base string, found bool) {
	idx, width := lastParen(basename)
	if idx < 0 {
		return -1, "", false
	}

	base = strings.TrimRight(basename[:idx], "-")

	number = -1
	started := false
	for _, r := range basename[idx+width:] {
		v, ok := digitValue(r)
		if !ok {
			if started {
				break
			}
			continue
		}
		if !started {
			started = true
			number = 0
		}
		if number > (math.MaxInt-v)/10 {
			return -1, base, true
		}
		number = number*10 + v
	}

	return number, base, true
}

func lastParen(s string) (idx, width int) {
	half := strings.LastIndex(s, openParen)
	full := strings.LastIndex(s, openParenFullWide)
	if full > half {
		return full, len(openParenFullWide)
	}
	if half >= 0 {
		return half, len(openParen)
	}
	return -1, 0
}

func digitValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= '０' && r <= '９':
		return int(r - '０'), true
	}
	return 0, false
}

// Stem returns the file name of path without directory or final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Namer produces the crop filenames for one source image.
type Namer struct {
	basename string
	base     string
	offset   int
	numbered bool
	ext      string
}

// NewNamer prepares names for crops of the image whose stem is basename.
// ext is the output extension without the dot.
func NewNamer(basename, ext string) Namer {
	n, base, found := ExtractNumber(basename)
	return Namer{
		basename: basename,
		base:     base,
		offset:   n,
		numbered: found && n >= 0,
		ext:      ext,
	}
}

// Numbered reports whether names continue a "name-(N)" sequence.
func (n Namer) Numbered() bool { return n.numbered }

// Name returns the filename for the region at sequence index idx.
func (n Namer) Name(idx int) string {
	if n.numbered {
		return fmt.Sprintf("%s-%d.%s", n.base, idx+n.offset, n.ext)
	}
	return fmt.Sprintf("%s-%d.%s", n.basename, idx, n.ext)
}
