package normalize

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

//go:embed default_schema.yaml
var defaultSchemaYAML []byte

// MetricAliases maps one canonical metric to the header names and label
// patterns that stand for it.
type MetricAliases struct {
	Key     models.Metric `yaml:"key"`
	Aliases []string      `yaml:"aliases"`
}

// Schema is the static candidate-name configuration for normalization.
type Schema struct {
	DateColumns   []string        `yaml:"date_columns"`
	PeriodColumns []string        `yaml:"period_columns"`
	Metrics       []MetricAliases `yaml:"metrics"`
	IgnoreLabels  []string        `yaml:"ignore_labels"`
	SkipRowLabels []string        `yaml:"skip_row_labels"`
}

// DefaultSchema returns the embedded schema. It panics only if the embedded
// file is broken, which is a build defect.
func DefaultSchema() Schema {
	s, err := ParseSchema(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded schema: %v", err))
	}
	return s
}

// LoadSchema reads a schema file; an empty path yields DefaultSchema.
func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read schema file '%s': %w", path, err)
	}
	return ParseSchema(data)
}

func ParseSchema(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, fmt.Errorf("schema validation failed: %w", err)
	}
	return s, nil
}

func (s Schema) Validate() error {
	if len(s.DateColumns) == 0 && len(s.PeriodColumns) == 0 {
		return errors.New("no date or period column candidates")
	}
	if len(s.Metrics) == 0 {
		return errors.New("no metrics configured")
	}
	seen := map[models.Metric]bool{}
	for _, m := range s.Metrics {
		if !models.IsRaw(m.Key) {
			return fmt.Errorf("unknown metric key %q", m.Key)
		}
		if seen[m.Key] {
			return fmt.Errorf("metric %q configured twice", m.Key)
		}
		seen[m.Key] = true
		if len(m.Aliases) == 0 {
			return fmt.Errorf("metric %q has no aliases", m.Key)
		}
	}
	return nil
}

// Aliases returns the candidates for metric m (nil when not configured).
func (s Schema) Aliases(m models.Metric) []string {
	for _, ma := range s.Metrics {
		if ma.Key == m {
			return ma.Aliases
		}
	}
	return nil
}
