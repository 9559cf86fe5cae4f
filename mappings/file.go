package mappings

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout accepted for seeding and importing mappings:
//
//	mappings:
//	  - email: user@example.com
//	    credential: secret-abc
type File struct {
	Mappings []*Mapping `yaml:"mappings"`
}

// LoadFile reads and validates a mappings file.
func LoadFile(path string) ([]*Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[mappings.LoadFile] %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("[mappings.LoadFile] %s: %w", path, err)
	}
	for i, m := range f.Mappings {
		if m == nil {
			return nil, fmt.Errorf("[mappings.LoadFile] %s: entry %d is empty", path, i)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("[mappings.LoadFile] %s: entry %d: %w", path, i, err)
		}
	}
	return f.Mappings, nil
}

// Import writes every mapping to repo and returns how many were written.
func Import(ctx context.Context, repo Repo, list []*Mapping) (int, error) {
	for i, m := range list {
		if err := repo.Upsert(ctx, m); err != nil {
			return i, err
		}
	}
	return len(list), nil
}
