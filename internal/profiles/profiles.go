// Package profiles loads named search profiles from a YAML file so an
// operator can keep a curated set outside the database.
package profiles

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blockedby/listings-os/internal/models"
)

// validation errors
var (
	ErrNoProfiles    = errors.New("profiles file defines no profiles")
	ErrUnnamed       = errors.New("profile without a name")
	ErrDuplicateName = errors.New("duplicate profile name")
	ErrUnresolvable  = errors.New("profile has no direct_url, region_id or query")
)

// File is the on-disk shape of a profiles file.
type File struct {
	Profiles []models.SearchProfile `yaml:"profiles"`
}

// Load reads and validates a profiles file, returning profiles by name.
func Load(path string) (map[string]models.SearchProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML content.
func Parse(data []byte) (map[string]models.SearchProfile, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles yaml: %w", err)
	}

	if len(f.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	out := make(map[string]models.SearchProfile, len(f.Profiles))
	for i, p := range f.Profiles {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("profile %d: %w", i, ErrUnnamed)
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("profile %q: %w", p.Name, ErrDuplicateName)
		}
		if p.DirectURL == "" && p.RegionID == nil && strings.TrimSpace(p.Query) == "" {
			return nil, fmt.Errorf("profile %q: %w", p.Name, ErrUnresolvable)
		}
		out[p.Name] = p
	}

	return out, nil
}
