package cmd

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional liberate.yaml in the working directory. Flags
// override anything set here.
type Manifest struct {
	Project string            `yaml:"project"`
	Repo    string            `yaml:"repo"`
	Port    int               `yaml:"port"`
	Domain  string            `yaml:"domain"`
	Env     map[string]string `yaml:"env"`
}

// loadManifest reads liberate.yaml from the current directory. A missing
// file is not an error; a malformed one is.
func loadManifest() (*Manifest, error) {
	data, err := os.ReadFile("liberate.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid liberate.yaml: %w", err)
	}
	return &m, nil
}

// parseEnvFlags turns repeated --env KEY=VALUE flags into a map.
func parseEnvFlags(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --env %q (expected KEY=VALUE)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
