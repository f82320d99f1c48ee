// Package drive finds and exports client deliverables from Google Drive.
package drive

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DocTypes are the deliverable kinds the company rules describe.
var DocTypes = []string{"daily", "weekly", "checkin", "planejamento", "replanejamento", "benchmarking"}

type Naming struct {
	Tokens      []string `yaml:"tokens" json:"tokens"`
	MimeTypes   []string `yaml:"mimeTypes" json:"mimeTypes"`
	FolderNames []string `yaml:"folder_names" json:"folder_names"`
}

// Rules is the per-company naming convention file. JSON files load too.
type Rules struct {
	Naming   map[string]Naming   `yaml:"naming" json:"naming"`
	Synonyms map[string][]string `yaml:"synonyms" json:"synonyms"`
}

func LoadRules(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("rules: %w", err)
	}
	return ParseRules(b)
}

func ParseRules(b []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, fmt.Errorf("rules: %w", err)
	}
	return r, nil
}

// Types lists the doc types with naming or synonyms, sorted.
func (r Rules) Types() []string {
	seen := map[string]bool{}
	for k := range r.Naming {
		seen[k] = true
	}
	for k := range r.Synonyms {
		seen[k] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
