package slug_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/permalink/pkg/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		opts     []slug.Option
		expected string
	}{
		{
			name:     "simple text",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "with punctuation",
			input:    "Hello, World!",
			expected: "hello-world",
		},
		{
			name:     "with numbers",
			input:    "Product 123",
			expected: "product-123",
		},
		{
			name:     "multiple spaces collapse",
			input:    "Too    Many     Spaces",
			expected: "too-many-spaces",
		},
		{
			name:     "leading and trailing spaces",
			input:    "  Trim Me  ",
			expected: "trim-me",
		},
		{
			name:     "special characters become boundaries",
			input:    "Price: $99.99",
			expected: "price-99-99",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
		{
			name:     "unicode diacritics",
			input:    "Café résumé naïve",
			expected: "cafe-resume-naive",
		},
		{
			name:     "lowercase disabled",
			input:    "Hello World",
			opts:     []slug.Option{slug.Lowercase(false)},
			expected: "Hello-World",
		},
		{
			name:     "custom separator",
			input:    "Hello World",
			opts:     []slug.Option{slug.Separator("_")},
			expected: "hello_world",
		},
		{
			name:     "max length",
			input:    "This is a very long title that should be truncated",
			opts:     []slug.Option{slug.MaxLength(20)},
			expected: "this-is-a-very-long",
		},
		{
			name:     "max length lands on separator",
			input:    "Cut off cleanly",
			opts:     []slug.Option{slug.MaxLength(7)},
			expected: "cut-off",
		},
		{
			name:     "strip specific characters",
			input:    "Remove (these) [chars]",
			opts:     []slug.Option{slug.StripChars("()[]")},
			expected: "remove-these-chars",
		},
		{
			name:  "custom replacements",
			input: "Fish & Chips @ Home",
			opts: []slug.Option{
				slug.CustomReplace(map[string]string{
					"&": "and",
					"@": "at",
				}),
			},
			expected: "fish-and-chips-at-home",
		},
		{
			name:     "consecutive separators collapse",
			input:    "Too---Many---Dashes",
			expected: "too-many-dashes",
		},
		{
			name:     "german characters",
			input:    "Über Größe straße",
			expected: "uber-grose-strase",
		},
		{
			name:     "french characters",
			input:    "Château façade élève",
			expected: "chateau-facade-eleve",
		},
		{
			name:     "polish characters",
			input:    "Zażółć gęślą jaźń",
			expected: "zazolc-gesla-jazn",
		},
		{
			name:     "mixed unicode and ascii",
			input:    "Côte d'Ivoire 2024",
			expected: "cote-d-ivoire-2024",
		},
		{
			name:     "url with protocol",
			input:    "https://example.com",
			expected: "https-example-com",
		},
		{
			name:     "path like string",
			input:    "path/to/file.txt",
			expected: "path-to-file-txt",
		},
		{
			name:     "emoji stripped",
			input:    "Hello 😀 World 🌍",
			expected: "hello-world",
		},
		{
			name:     "tabs and newlines",
			input:    "Line1\nLine2\tTabbed",
			expected: "line1-line2-tabbed",
		},
		{
			name:     "zero max length means unlimited",
			input:    "Should not truncate",
			opts:     []slug.Option{slug.MaxLength(0)},
			expected: "should-not-truncate",
		},
		{
			name:     "empty separator joins words",
			input:    "No Separator",
			opts:     []slug.Option{slug.Separator("")},
			expected: "noseparator",
		},
		{
			name:     "multi-character separator",
			input:    "Multi Sep Test",
			opts:     []slug.Option{slug.Separator("---")},
			expected: "multi---sep---test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slug.Make(tt.input, tt.opts...))
		})
	}
}

func TestDiacriticFolding(t *testing.T) {
	t.Parallel()

	pairs := []struct{ in, out string }{
		{"à", "a"}, {"Å", "a"}, {"é", "e"}, {"Ê", "e"},
		{"ï", "i"}, {"õ", "o"}, {"ø", "o"}, {"ü", "u"},
		{"ñ", "n"}, {"ç", "c"}, {"ß", "s"}, {"æ", "a"},
		{"œ", "o"}, {"ł", "l"},
	}
	for _, p := range pairs {
		t.Run(p.in, func(t *testing.T) {
			assert.Equal(t, p.out, slug.Make(p.in))
		})
	}
}

func TestWithSuffix(t *testing.T) {
	t.Parallel()

	t.Run("appends fixed-width suffix", func(t *testing.T) {
		result := slug.Make("Article Title", slug.WithSuffix(8))
		assert.True(t, strings.HasPrefix(result, "article-title-"))
		parts := strings.Split(result, "-")
		assert.Len(t, parts[len(parts)-1], 8)
		assert.Regexp(t, "^[a-z0-9]{8}$", parts[len(parts)-1])
	})

	t.Run("suffixes are random", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 20 {
			seen[slug.Make("base", slug.WithSuffix(6))] = true
		}
		assert.Greater(t, len(seen), 1)
	})

	t.Run("mixed-case charset when lowercase disabled", func(t *testing.T) {
		result := slug.Make("Base", slug.WithSuffix(6), slug.Lowercase(false))
		parts := strings.Split(result, "-")
		assert.Regexp(t, "^[a-zA-Z0-9]{6}$", parts[len(parts)-1])
	})

	t.Run("max length truncates base not suffix", func(t *testing.T) {
		result := slug.Make("VeryLongTitleThatNeedsToBeShortened",
			slug.WithSuffix(6), slug.MaxLength(8))
		assert.Equal(t, 8, len(result))
		parts := strings.Split(result, "-")
		assert.Len(t, parts[len(parts)-1], 6)
	})

	t.Run("suffix alone when no room for base", func(t *testing.T) {
		result := slug.Make("Test", slug.WithSuffix(10), slug.MaxLength(5))
		assert.Regexp(t, "^[a-z0-9]{5}$", result)
	})

	t.Run("empty input yields bare suffix", func(t *testing.T) {
		result := slug.Make("", slug.WithSuffix(6))
		assert.Regexp(t, "^[a-z0-9]{6}$", result)
	})
}

func TestReservedSlugs(t *testing.T) {
	t.Parallel()

	t.Run("reserved slug gets suffixed", func(t *testing.T) {
		result := slug.Make("admin", slug.ReservedSlugs("admin", "api", "login"))
		assert.NotEqual(t, "admin", result)
		assert.True(t, strings.HasPrefix(result, "admin-"))
		parts := strings.Split(result, "-")
		assert.Len(t, parts[1], 6)
	})

	t.Run("case-insensitive match", func(t *testing.T) {
		result := slug.Make("AdMiN", slug.ReservedSlugs("admin"))
		assert.NotEqual(t, "admin", result)
		assert.True(t, strings.HasPrefix(result, "admin-"))
	})

	t.Run("non-reserved passes through", func(t *testing.T) {
		assert.Equal(t, "product", slug.Make("product", slug.ReservedSlugs("admin")))
	})

	t.Run("suffix shrinks to honor max length", func(t *testing.T) {
		result := slug.Make("admin", slug.ReservedSlugs("admin"), slug.MaxLength(10))
		assert.NotEqual(t, "admin", result)
		assert.LessOrEqual(t, len(result), 10)
		parts := strings.Split(result, "-")
		assert.Len(t, parts[1], 4)
	})

	t.Run("explicit suffix length wins", func(t *testing.T) {
		result := slug.Make("login", slug.ReservedSlugs("login"), slug.WithSuffix(8))
		parts := strings.Split(result, "-")
		assert.Len(t, parts[1], 8)
	})

	t.Run("empty reserved list", func(t *testing.T) {
		assert.Equal(t, "admin", slug.Make("admin", slug.ReservedSlugs()))
	})
}

func TestMinLength(t *testing.T) {
	t.Parallel()

	t.Run("short slug padded with suffix", func(t *testing.T) {
		result := slug.Make("owl", slug.MinLength(10))
		assert.Equal(t, 10, len(result))
		assert.True(t, strings.HasPrefix(result, "owl-"))
	})

	t.Run("long enough slug unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", slug.Make("hello", slug.MinLength(5)))
	})

	t.Run("zero min length has no effect", func(t *testing.T) {
		assert.Equal(t, "hi", slug.Make("hi", slug.MinLength(0)))
	})
}

func BenchmarkMake(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = slug.Make("Château façade élève & Co 2024", slug.MaxLength(30))
	}
}
