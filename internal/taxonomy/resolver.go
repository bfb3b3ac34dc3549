// Package taxonomy resolves free-text facility-type labels onto canonical
// taxonomy nodes from the directory's taxonomy tree.
package taxonomy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/streetlives/util-scripts/internal/model"
)

// ErrUnknownTaxonomy is returned when a label matches no node in the tree.
// Records with an unresolvable taxonomy are rejected by the normalizer.
var ErrUnknownTaxonomy = eris.New("taxonomy: unknown label")

// Resolver looks up taxonomy nodes by name, applying source-specific
// aliases first (partner feeds rarely spell categories the way the
// directory does).
type Resolver struct {
	tree    []model.TaxonomyNode
	aliases map[string]string
}

// NewResolver builds a resolver over the given tree. Alias keys and the
// lookup itself are case-insensitive.
func NewResolver(tree []model.TaxonomyNode, aliases map[string]string) *Resolver {
	folded := make(map[string]string, len(aliases))
	for from, to := range aliases {
		folded[strings.ToLower(strings.TrimSpace(from))] = to
	}
	return &Resolver{tree: tree, aliases: folded}
}

// Resolve finds the first tree node whose name equals the label,
// depth-first and case-insensitive. Returns ErrUnknownTaxonomy when no
// node matches.
func (r *Resolver) Resolve(label string) (*model.TaxonomyNode, error) {
	name := strings.TrimSpace(label)
	if alias, ok := r.aliases[strings.ToLower(name)]; ok {
		name = alias
	}

	if node := findNode(name, r.tree); node != nil {
		return node, nil
	}
	return nil, eris.Wrapf(ErrUnknownTaxonomy, "%q", label)
}

func findNode(name string, nodes []model.TaxonomyNode) *model.TaxonomyNode {
	for i := range nodes {
		if strings.EqualFold(nodes[i].Name, name) {
			return &nodes[i]
		}
		if child := findNode(name, nodes[i].Children); child != nil {
			return child
		}
	}
	return nil
}

// LoadAliases reads a YAML map of source label to directory taxonomy name.
// A missing file is not an error; imports simply run without aliases.
func LoadAliases(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "taxonomy: read aliases")
	}

	var aliases map[string]string
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, eris.Wrap(err, "taxonomy: parse aliases")
	}
	return aliases, nil
}
