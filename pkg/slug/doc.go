// Package slug converts arbitrary display names into URL-safe identifiers.
//
// Make normalizes its input by folding Latin diacritics to ASCII, replacing
// runs of non-alphanumeric characters with a single separator, and trimming
// separators from both ends:
//
//	slug.Make("Jane Doe")            // "jane-doe"
//	slug.Make("Café & Restaurant")   // "cafe-restaurant"
//
// Behavior is tuned with functional options:
//
//	slug.Make("Long Article Title", slug.MaxLength(20))
//	slug.Make("Product Name", slug.Separator("_"))
//	slug.Make("Jane Doe", slug.WithSuffix(4))            // "jane-doe-x3k7"
//	slug.Make("admin", slug.ReservedSlugs("admin"))      // "admin-k7x2m4"
//	slug.Make("Fish & Chips", slug.CustomReplace(map[string]string{"&": "and"}))
//
// Unsupported scripts (Cyrillic, CJK, emoji) become word boundaries, so an
// input with no representable characters produces an empty slug. Callers
// that require a non-empty result must supply their own fallback base.
//
// Make is pure apart from the randomness of generated suffixes.
package slug
