package contacts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type rosterFile struct {
	Contacts []rosterContact `yaml:"contacts"`
}

type rosterContact struct {
	ID       string `yaml:"id"`
	Nickname string `yaml:"nickname"`
}

// LoadRoster reads the optional contacts roster: a YAML file of sender ids
// and the nicknames to show in context lines. It is read once at startup
// and never written.
func LoadRoster(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	roster := make(map[string]string, len(file.Contacts))
	for i, c := range file.Contacts {
		canon := CanonicalID(c.ID)
		if canon == "" {
			return nil, fmt.Errorf("roster contact #%d has no id", i+1)
		}
		roster[canon] = c.Nickname
	}
	return roster, nil
}
