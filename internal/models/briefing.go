// internal/models/briefing.go
package models

import (
	"strings"
	"unicode/utf8"
)

// Duration is the target length bucket of the video
type Duration string

const (
	DurationShort  Duration = "curto"
	DurationMedium Duration = "médio"
	DurationLong   Duration = "longo"
)

// Durations lists the buckets in display order
var Durations = []Duration{DurationShort, DurationMedium, DurationLong}

// ParseDuration accepts the bucket keys plus the unaccented "medio"
func ParseDuration(value string) (Duration, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DurationShort):
		return DurationShort, true
	case string(DurationMedium), "medio":
		return DurationMedium, true
	case string(DurationLong):
		return DurationLong, true
	default:
		return "", false
	}
}

// Minimum trimmed lengths; a field is valid when strictly longer
const (
	MinNicheLength    = 3
	MinTopicLength    = 3
	MinAudienceLength = 3
	MinKeywordLength  = 2
	MinBenefitLength  = 5
)

// DefaultCallToAction pre-fills the CTA field
const DefaultCallToAction = "Inscreva-se e baixe o material extra na descrição."

// BriefingInput is the creative briefing collected by the form
type BriefingInput struct {
	Niche        string   `json:"niche" yaml:"niche"`
	Topic        string   `json:"topic" yaml:"topic"`
	Audience     string   `json:"audience" yaml:"audience"`
	Tone         string   `json:"tone" yaml:"tone"`
	Duration     Duration `json:"duration" yaml:"duration"`
	Format       string   `json:"format" yaml:"format"`
	CallToAction string   `json:"call_to_action" yaml:"call_to_action"`
	Keyword      string   `json:"keyword" yaml:"keyword"`
	Benefit      string   `json:"benefit" yaml:"benefit"`
}

// InvalidFields returns the json names of the free-text fields failing the length gate
func (b BriefingInput) InvalidFields() []string {
	var fields []string
	check := func(name, value string, min int) {
		if trimmedLen(value) <= min {
			fields = append(fields, name)
		}
	}
	check("niche", b.Niche, MinNicheLength)
	check("topic", b.Topic, MinTopicLength)
	check("audience", b.Audience, MinAudienceLength)
	check("keyword", b.Keyword, MinKeywordLength)
	check("benefit", b.Benefit, MinBenefitLength)
	return fields
}

// IsValid reports whether the briefing may be submitted
func (b BriefingInput) IsValid() bool {
	return len(b.InvalidFields()) == 0
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
