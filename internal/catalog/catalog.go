// Package catalog holds the read-only split catalog and the limitation exclusion table.
// Both are loaded once at startup from a versioned YAML document.
package catalog

import (
	_ "embed"
	"fmt"

	"alcyxob/fitness-planner/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// LimitationRule maps one limitation tag to the muscle groups it rules out.
type LimitationRule struct {
	Tag      domain.Limitation    `yaml:"tag"`
	Excludes []domain.MuscleGroup `yaml:"excludes"`
	Advisory string               `yaml:"advisory"`
}

// Region is a body region the safety filter can synthesize a focus split from.
type Region struct {
	Type          domain.SplitType     `yaml:"type"`
	Name          string               `yaml:"name"`
	MuscleGroups  []domain.MuscleGroup `yaml:"muscle_groups"`
	RecoveryHours int                  `yaml:"recovery_hours"`
}

type document struct {
	Version      int               `yaml:"version"`
	Splits       []domain.Split    `yaml:"splits"`
	Limitations  []LimitationRule  `yaml:"limitations"`
	Regions      []Region          `yaml:"regions"`
	Conservative domain.Split      `yaml:"conservative"`
	Exercises    []domain.Exercise `yaml:"exercises"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	version      int
	splits       []domain.Split
	byID         map[string]domain.Split
	rules        map[domain.Limitation]LimitationRule
	regions      []Region
	conservative domain.Split
	exercises    []domain.Exercise
}

// Embedded loads the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Load(embeddedCatalog)
}

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		version:      doc.Version,
		byID:         make(map[string]domain.Split, len(doc.Splits)),
		rules:        make(map[domain.Limitation]LimitationRule, len(doc.Limitations)),
		regions:      doc.Regions,
		conservative: doc.Conservative,
		exercises:    doc.Exercises,
	}
	for _, s := range doc.Splits {
		if err := validateSplit(s); err != nil {
			return nil, err
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate split id %q", s.ID)
		}
		c.byID[s.ID] = s
		c.splits = append(c.splits, s)
	}
	for _, r := range doc.Limitations {
		if !r.Tag.IsValid() {
			return nil, fmt.Errorf("catalog: unknown limitation tag %q", r.Tag)
		}
		for _, g := range r.Excludes {
			if !g.IsValid() {
				return nil, fmt.Errorf("catalog: limitation %q excludes unknown muscle group %q", r.Tag, g)
			}
		}
		c.rules[r.Tag] = r
	}
	for _, region := range doc.Regions {
		if !region.Type.IsLimitationVariant() {
			return nil, fmt.Errorf("catalog: region %q must use a limitation-specific type", region.Name)
		}
	}
	c.conservative.Synthetic = true
	if err := validateSplit(c.conservative); err != nil {
		return nil, fmt.Errorf("catalog: conservative fallback: %w", err)
	}
	for _, e := range doc.Exercises {
		if !e.MuscleGroup.IsValid() {
			return nil, fmt.Errorf("catalog: exercise %q has unknown muscle group %q", e.Name, e.MuscleGroup)
		}
	}
	return c, nil
}

func validateSplit(s domain.Split) error {
	if s.ID == "" || s.Name == "" {
		return fmt.Errorf("catalog: split requires id and name")
	}
	if !s.Type.IsValid() {
		return fmt.Errorf("catalog: split %q has unknown type %q", s.ID, s.Type)
	}
	if len(s.MuscleGroups) == 0 {
		return fmt.Errorf("catalog: split %q has no muscle groups", s.ID)
	}
	for _, g := range s.MuscleGroups {
		if !g.IsValid() {
			return fmt.Errorf("catalog: split %q has unknown muscle group %q", s.ID, g)
		}
	}
	if s.RecoveryHours <= 0 {
		return fmt.Errorf("catalog: split %q needs positive recovery hours", s.ID)
	}
	return nil
}

func (c *Catalog) Version() int { return c.version }

// All returns every split in catalog order.
func (c *Catalog) All() []domain.Split {
	out := make([]domain.Split, len(c.splits))
	copy(out, c.splits)
	return out
}

// ByType returns the splits of one type in catalog order.
func (c *Catalog) ByType(t domain.SplitType) []domain.Split {
	var out []domain.Split
	for _, s := range c.splits {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) ByID(id string) (domain.Split, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Excluded returns the union of muscle groups ruled out by the given limitations.
func (c *Catalog) Excluded(limitations []domain.Limitation) map[domain.MuscleGroup]bool {
	out := make(map[domain.MuscleGroup]bool)
	for _, l := range limitations {
		for _, g := range c.rules[l].Excludes {
			out[g] = true
		}
	}
	return out
}

// Advisory returns the intensity note for a limitation, if any.
func (c *Catalog) Advisory(l domain.Limitation) string {
	return c.rules[l].Advisory
}

func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

func (c *Catalog) Conservative() domain.Split {
	s := c.conservative
	s.MuscleGroups = append([]domain.MuscleGroup(nil), s.MuscleGroups...)
	return s
}

// Exercises returns the exercise bank seed.
func (c *Catalog) Exercises() []domain.Exercise {
	out := make([]domain.Exercise, len(c.exercises))
	copy(out, c.exercises)
	return out
}
