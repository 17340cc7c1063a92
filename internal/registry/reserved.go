package registry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed reserved_slugs.yaml
var reservedRaw []byte

// Reserved is the set of path segments that may never become a slug,
// loaded from the embedded list at startup. The registry treats them
// as permanently taken, so colliding names come out suffixed.
var Reserved = mustLoadReserved()

func mustLoadReserved() map[string]struct{} {
	var doc struct {
		Reserved []string `yaml:"reserved"`
	}
	if err := yaml.Unmarshal(reservedRaw, &doc); err != nil {
		panic(fmt.Sprintf("registry: parse reserved slugs: %v", err))
	}
	set := make(map[string]struct{}, len(doc.Reserved))
	for _, s := range doc.Reserved {
		set[s] = struct{}{}
	}
	return set
}
