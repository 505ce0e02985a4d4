// Package catalog loads the fixed choices of the briefing form and the
// definitions of the simulated agent steps.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

//go:embed default.toml
var defaultCatalog string

// DurationOption is a selectable duration bucket
type DurationOption struct {
	Label string          `toml:"label" json:"label"`
	Value models.Duration `toml:"value" json:"value"`
}

// StepDefinition describes one agent step
type StepDefinition struct {
	ID          models.StepID `toml:"id" json:"id"`
	Title       string        `toml:"title" json:"title"`
	Description string        `toml:"description" json:"description"`
}

// Catalog holds every fixed list the studio offers
type Catalog struct {
	DefaultCTA      string           `toml:"default_cta" json:"default_cta"`
	DefaultDuration models.Duration  `toml:"default_duration" json:"default_duration"`
	Tones           []string         `toml:"tones" json:"tones"`
	Formats         []string         `toml:"formats" json:"formats"`
	Durations       []DurationOption `toml:"durations" json:"durations"`
	Steps           []StepDefinition `toml:"steps" json:"steps"`
}

// Default returns the embedded catalog
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a catalog document
func Parse(doc string) (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(doc, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &c, nil
}

// LoadFile reads a catalog from path, or the embedded one when path is empty
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	var c Catalog
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("validate catalog %s: %w", path, err)
	}
	return &c, nil
}

// HasTone reports whether tone is offered
func (c *Catalog) HasTone(tone string) bool {
	return contains(c.Tones, tone)
}

// HasFormat reports whether format is offered
func (c *Catalog) HasFormat(format string) bool {
	return contains(c.Formats, format)
}

// DefaultBriefing returns the initial form values
func (c *Catalog) DefaultBriefing() models.BriefingInput {
	return models.BriefingInput{
		Tone:         c.Tones[0],
		Duration:     c.DefaultDuration,
		Format:       c.Formats[0],
		CallToAction: c.DefaultCTA,
	}
}

// InitialSteps returns the step list with every step pending
func (c *Catalog) InitialSteps() []models.Step {
	steps := make([]models.Step, len(c.Steps))
	for i, def := range c.Steps {
		steps[i] = models.Step{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Status:      models.StepPending,
		}
	}
	return steps
}

func (c *Catalog) validate() error {
	if len(c.Tones) == 0 {
		return fmt.Errorf("missing tones")
	}
	if len(c.Formats) == 0 {
		return fmt.Errorf("missing formats")
	}
	if strings.TrimSpace(c.DefaultCTA) == "" {
		c.DefaultCTA = models.DefaultCallToAction
	}

	if len(c.Durations) != len(models.Durations) {
		return fmt.Errorf("expected %d durations, got %d", len(models.Durations), len(c.Durations))
	}
	for i, option := range c.Durations {
		if option.Value != models.Durations[i] {
			return fmt.Errorf("duration %d must be %q, got %q", i, models.Durations[i], option.Value)
		}
		if strings.TrimSpace(option.Label) == "" {
			return fmt.Errorf("duration %q missing label", option.Value)
		}
	}
	if c.DefaultDuration == "" {
		c.DefaultDuration = models.DurationMedium
	}
	if _, ok := models.ParseDuration(string(c.DefaultDuration)); !ok {
		return fmt.Errorf("unknown default duration %q", c.DefaultDuration)
	}

	// step summaries are keyed by id, so the list is fixed
	if len(c.Steps) != len(models.StepOrder) {
		return fmt.Errorf("expected %d steps, got %d", len(models.StepOrder), len(c.Steps))
	}
	for i, step := range c.Steps {
		if step.ID != models.StepOrder[i] {
			return fmt.Errorf("step %d must be %q, got %q", i, models.StepOrder[i], step.ID)
		}
		if strings.TrimSpace(step.Title) == "" {
			return fmt.Errorf("step %q missing title", step.ID)
		}
	}
	return nil
}

func contains(items []string, item string) bool {
	for _, candidate := range items {
		if candidate == item {
			return true
		}
	}
	return false
}
