package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"clinic/internal/schedule"
)

// ProfessionalSeed is one professional's availability in seed/CLI YAML files.
type ProfessionalSeed struct {
	ID            string                     `yaml:"id"`
	Name          string                     `yaml:"name"`
	TimeZone      string                     `yaml:"time_zone"`
	BufferMinutes *int                       `yaml:"buffer_minutes"` // nil takes the file default
	Rules         schedule.GroupedRules      `yaml:"rules"`
	Exceptions    []schedule.ExceptionPeriod `yaml:"exceptions"`
}

// SeedFile is the root of a seed YAML file.
type SeedFile struct {
	Defaults struct {
		TimeZone      string `yaml:"time_zone"`
		BufferMinutes int    `yaml:"buffer_minutes"`
	} `yaml:"defaults"`
	Professionals []ProfessionalSeed `yaml:"professionals"`
}

// LoadSeed loads professional availability from a YAML file. Structural
// problems (ids, duplicates) fail the load; schedule content is left to
// schedule.Validate so every problem can be reported at once.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	ids := make(map[uuid.UUID]bool)
	for i := range seed.Professionals {
		p := &seed.Professionals[i]
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, fmt.Errorf("professionals[%d]: invalid id '%s'", i, p.ID)
		}
		if ids[id] {
			return nil, fmt.Errorf("professionals[%d]: duplicate id %s", i, id)
		}
		ids[id] = true

		if p.TimeZone == "" {
			p.TimeZone = seed.Defaults.TimeZone
		}
		if p.BufferMinutes == nil {
			buffer := seed.Defaults.BufferMinutes
			p.BufferMinutes = &buffer
		}
	}
	return &seed, nil
}

// Document converts the seed entry into a storable document.
func (p ProfessionalSeed) Document() (schedule.Document, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return schedule.Document{}, fmt.Errorf("invalid professional id '%s': %w", p.ID, err)
	}
	return schedule.Document{
		ProfessionalID: id,
		Rules:          schedule.ToStorage(p.Rules),
		Exceptions:     p.Exceptions,
		Config:         p.Config(),
	}, nil
}

func (p ProfessionalSeed) Config() schedule.Config {
	cfg := schedule.Config{TimeZone: p.TimeZone}
	if p.BufferMinutes != nil {
		cfg.BufferMinutes = *p.BufferMinutes
	}
	return cfg
}

// Find returns the professional with the given id.
func (s *SeedFile) Find(id string) *ProfessionalSeed {
	for i := range s.Professionals {
		if s.Professionals[i].ID == id {
			return &s.Professionals[i]
		}
	}
	return nil
}
