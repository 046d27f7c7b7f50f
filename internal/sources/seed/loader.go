package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads the site link seed file.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the seed file. ${VAR} references are expanded from
// the environment so secrets can stay out of the file.
func (l *Loader) Load() (*File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var file File
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	for i, link := range file.Links {
		if link.Label == "" && link.ID == "" {
			return nil, fmt.Errorf("seed link #%d: label or id is required", i+1)
		}
	}

	return &file, nil
}
