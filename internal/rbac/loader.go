package rbac

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joyofrisk/api/models"
)

// File is the YAML layout of a permission table:
//
//	roles:
//	  basic: [signals, trade-ideas]
//	  pro: [signals, trade-ideas, market-scanner]
type File struct {
	Roles map[string][]string `yaml:"roles"`
}

// Load reads a permission table from a YAML file
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions file %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse permissions file %s: %w", path, err)
	}
	return t, nil
}

// Parse builds a Table from YAML. Roles missing from the document get no features.
func Parse(data []byte) (*Table, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("no roles defined")
	}

	features := make(map[models.Role][]string, len(f.Roles))
	for name, list := range f.Roles {
		role, ok := models.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", name)
		}
		for _, feature := range list {
			if feature == "" {
				return nil, fmt.Errorf("role %q: empty feature identifier", name)
			}
		}
		features[role] = list
	}
	return New(features), nil
}
