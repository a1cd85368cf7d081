package registry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/podplay/taskgraph/pkg/domain"
)

//go:embed defaults.yaml
var defaultTemplatesYAML []byte

type defaultTemplateSet struct {
	Templates []domain.GraphTemplate `yaml:"templates"`
}

// DefaultTemplates returns the built-in template set seeded into an empty
// template store on first startup.
func DefaultTemplates() ([]domain.GraphTemplate, error) {
	var set defaultTemplateSet
	if err := yaml.Unmarshal(defaultTemplatesYAML, &set); err != nil {
		return nil, fmt.Errorf("parsing built-in templates: %w", err)
	}

	return set.Templates, nil
}
