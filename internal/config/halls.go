package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed halls.yaml
var defaultHalls []byte

// Hall is a dining location addressed on the menu portal by its short code.
type Hall struct {
	Name     string `yaml:"name"`
	Code     string `yaml:"code"`
	Location string `yaml:"location"`
}

type hallTable struct {
	Halls []Hall `yaml:"halls"`
}

// LoadHalls reads the hall table from path, or the built-in table when path is empty.
func LoadHalls(path string) ([]Hall, error) {
	data := defaultHalls
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read hall table: %w", err)
		}
	}
	return ParseHalls(data)
}

// ParseHalls decodes a YAML hall table. Every hall needs a name and a code,
// and names must be unique.
func ParseHalls(data []byte) ([]Hall, error) {
	var table hallTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to decode hall table: %w", err)
	}
	if len(table.Halls) == 0 {
		return nil, fmt.Errorf("hall table is empty")
	}

	seen := make(map[string]struct{}, len(table.Halls))
	for i, h := range table.Halls {
		if h.Name == "" || h.Code == "" {
			return nil, fmt.Errorf("hall %d: name and code are required", i)
		}
		if _, dup := seen[h.Name]; dup {
			return nil, fmt.Errorf("hall %q listed twice", h.Name)
		}
		seen[h.Name] = struct{}{}
		if h.Location == "" {
			table.Halls[i].Location = h.Name
		}
	}
	return table.Halls, nil
}
