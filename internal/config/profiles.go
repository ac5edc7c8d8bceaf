package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/knowledge-engine/veritas/internal/matcher"
)

// Built-in analysis profiles
const (
	ProfileStandard  = "standard"
	ProfileStrict    = "strict"
	ProfileSensitive = "sensitive"
)

// Profiles maps a profile name to its matching parameters.
type Profiles map[string]matcher.Params

// DefaultProfiles returns the built-in presets.
func DefaultProfiles() Profiles {
	return Profiles{
		ProfileStandard:  {ChunkWords: 60, StrideWords: 25, TopKPerChunk: 1, Threshold: 0.75},
		ProfileStrict:    {ChunkWords: 80, StrideWords: 35, TopKPerChunk: 1, Threshold: 0.85},
		ProfileSensitive: {ChunkWords: 40, StrideWords: 15, TopKPerChunk: 1, Threshold: 0.60},
	}
}

// Names returns the profile names in sorted order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a profile by case-insensitive name.
func (p Profiles) Lookup(name string) (matcher.Params, bool) {
	params, ok := p[strings.ToLower(strings.TrimSpace(name))]
	return params, ok
}

type profileEntry struct {
	ChunkWords   *int     `toml:"chunk_words"`
	StrideWords  *int     `toml:"stride_words"`
	TopKPerChunk *int     `toml:"top_k_per_chunk"`
	Threshold    *float64 `toml:"threshold"`
}

type profilesFile struct {
	Profiles map[string]profileEntry `toml:"profiles"`
}

// LoadProfiles returns the built-in presets merged with the [profiles.<name>]
// tables of the TOML file at path. Keys missing from a table keep the preset
// value, so a file may override a single knob. An empty path yields the
// defaults.
func LoadProfiles(path string) (Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var file profilesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}

	for name, entry := range file.Profiles {
		key := strings.ToLower(strings.TrimSpace(name))
		params := profiles[key]
		if entry.ChunkWords != nil {
			params.ChunkWords = *entry.ChunkWords
		}
		if entry.StrideWords != nil {
			params.StrideWords = *entry.StrideWords
		}
		if entry.TopKPerChunk != nil {
			params.TopKPerChunk = *entry.TopKPerChunk
		}
		if entry.Threshold != nil {
			params.Threshold = *entry.Threshold
		}
		if err := params.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		profiles[key] = params
	}
	return profiles, nil
}
