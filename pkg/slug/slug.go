package slug

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultSeparator = "-"
	defaultSuffixLen = 6
)

// Option configures slug generation.
type Option func(*options)

type options struct {
	separator    string
	stripChars   string
	replacements map[string]string
	reserved     []string
	maxLength    int
	minLength    int
	suffixLength int
	lowercase    bool
}

func defaultOptions() *options {
	return &options{
		separator: defaultSeparator,
		lowercase: true,
	}
}

// MaxLength limits the slug to n runes. Truncation never leaves a trailing
// separator. Zero means unlimited.
func MaxLength(n int) Option {
	return func(o *options) {
		o.maxLength = n
	}
}

// MinLength pads slugs shorter than n runes with a random suffix.
func MinLength(n int) Option {
	return func(o *options) {
		o.minLength = n
	}
}

// Separator sets the string inserted between words. Default is "-".
func Separator(s string) Option {
	return func(o *options) {
		o.separator = s
	}
}

// Lowercase controls case folding of the result. Default is true.
func Lowercase(enabled bool) Option {
	return func(o *options) {
		o.lowercase = enabled
	}
}

// StripChars removes the given characters from the input before
// slugification, so they do not become word boundaries.
func StripChars(chars string) Option {
	return func(o *options) {
		o.stripChars = chars
	}
}

// CustomReplace applies string replacements before slugification,
// e.g. {"&": "and"}.
func CustomReplace(replacements map[string]string) Option {
	return func(o *options) {
		o.replacements = replacements
	}
}

// WithSuffix appends a random alphanumeric suffix of length n.
// Under MaxLength the base is truncated to make room for the full suffix.
func WithSuffix(n int) Option {
	return func(o *options) {
		o.suffixLength = n
	}
}

// ReservedSlugs prevents the listed slugs (case-insensitive) from being
// produced verbatim; a random suffix is appended when the result would
// match one of them.
func ReservedSlugs(slugs ...string) Option {
	return func(o *options) {
		o.reserved = append(o.reserved, slugs...)
	}
}

// Make converts input into a URL-safe slug.
//
// Latin diacritics are folded to their ASCII equivalents; characters that
// cannot be transliterated become word boundaries. Runs of non-alphanumeric
// characters collapse into a single separator, which is trimmed from both
// ends. An empty input yields an empty slug unless a suffix is requested.
func Make(input string, opts ...Option) string {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s := input
	for from, to := range o.replacements {
		s = strings.ReplaceAll(s, from, to)
	}
	if o.stripChars != "" {
		s = strings.Map(func(r rune) rune {
			if strings.ContainsRune(o.stripChars, r) {
				return -1
			}
			return r
		}, s)
	}

	s = transliterate(s)

	// Split into alphanumeric runs; everything else is a boundary.
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !isAlnum(r)
	})
	result := strings.Join(words, o.separator)

	if o.lowercase {
		result = strings.ToLower(result)
	}

	if o.maxLength > 0 {
		result = truncate(result, o.maxLength, o.separator)
	}

	suffixLen := o.suffixLength
	shrinkSuffix := false
	if suffixLen == 0 {
		switch {
		case o.minLength > 0 && runeLen(result) < o.minLength:
			suffixLen = defaultSuffixLen
		case isReserved(result, o.reserved):
			suffixLen = defaultSuffixLen
			shrinkSuffix = true
		}
	}
	if suffixLen > 0 {
		result = appendSuffix(result, suffixLen, shrinkSuffix, o)
	}

	return result
}

// translitSingles maps letters with no canonical decomposition.
var translitSingles = strings.NewReplacer(
	"ß", "s", "ẞ", "S",
	"æ", "a", "Æ", "A",
	"œ", "o", "Œ", "O",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
)

// stripMarks removes combining marks after canonical decomposition,
// folding e.g. "é" to "e".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func transliterate(s string) string {
	s = translitSingles.Replace(s)
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return folded
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isReserved(s string, reserved []string) bool {
	for _, r := range reserved {
		if strings.EqualFold(s, r) {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return len([]rune(s))
}

// truncate cuts s to n runes and trims any trailing separator left behind.
func truncate(s string, n int, sep string) string {
	r := []rune(s)
	if len(r) > n {
		s = string(r[:n])
	}
	if sep != "" {
		for strings.HasSuffix(s, sep) {
			s = strings.TrimSuffix(s, sep)
		}
	}
	return s
}

// appendSuffix attaches a random suffix, honoring MaxLength. An explicit
// suffix keeps its full length and truncates the base instead; a suffix
// forced by ReservedSlugs shrinks to fit before the base gives way.
func appendSuffix(base string, suffixLen int, shrink bool, o *options) string {
	sepLen := runeLen(o.separator)

	if o.maxLength > 0 {
		room := o.maxLength - runeLen(base) - sepLen
		if room < suffixLen {
			if shrink && room >= 3 {
				suffixLen = room
			} else {
				baseRoom := o.maxLength - sepLen - suffixLen
				if baseRoom <= 0 {
					// Suffix alone fills the budget.
					return randomSuffix(min(suffixLen, o.maxLength), o.lowercase)
				}
				base = truncate(base, baseRoom, o.separator)
			}
		}
	}

	if base == "" {
		return randomSuffix(suffixLen, o.lowercase)
	}
	return base + o.separator + randomSuffix(suffixLen, o.lowercase)
}

const (
	suffixCharsLower = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixCharsMixed = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomSuffix(n int, lowercase bool) string {
	if n <= 0 {
		return ""
	}
	charset := suffixCharsMixed
	if lowercase {
		charset = suffixCharsLower
	}

	buf := make([]byte, n)
	// crypto/rand.Read never fails on supported platforms; on the
	// unlikely error the zeroed buffer still maps to valid characters.
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf)
}
