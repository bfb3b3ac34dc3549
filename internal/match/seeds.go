package match

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadKnownDistinct reads a YAML seed file mapping an organization name to
// names of organizations known to sit nearby yet be different, e.g.
//
//	St. Mary's:
//	  - Saint Mary Church
//
// A missing file is not an error; the seed is optional.
func LoadKnownDistinct(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "match: read known-distinct seed")
	}

	var pairs map[string][]string
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, eris.Wrap(err, "match: parse known-distinct seed")
	}
	return pairs, nil
}
