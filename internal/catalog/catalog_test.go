package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if len(c.Tones) != 6 || len(c.Formats) != 6 || len(c.Durations) != 3 {
		t.Fatalf("unexpected sizes tones=%d formats=%d durations=%d", len(c.Tones), len(c.Formats), len(c.Durations))
	}
	for i, step := range c.Steps {
		if step.ID != models.StepOrder[i] {
			t.Fatalf("step %d id=%q", i, step.ID)
		}
	}

	b := c.DefaultBriefing()
	if b.Tone != "Motivacional" || b.Duration != models.DurationMedium || b.Format != "Guia passo a passo" {
		t.Fatalf("unexpected defaults %#v", b)
	}
	if b.CallToAction != models.DefaultCallToAction {
		t.Fatalf("unexpected CTA %q", b.CallToAction)
	}

	steps := c.InitialSteps()
	for _, s := range steps {
		if s.Status != models.StepPending || s.Output != "" {
			t.Fatalf("step %q not pristine: %#v", s.ID, s)
		}
	}
	if !c.HasTone("Documental") || c.HasTone("Sarcástico") {
		t.Fatalf("HasTone mismatch")
	}
	if !c.HasFormat("Estudo de caso") || c.HasFormat("Podcast") {
		t.Fatalf("HasFormat mismatch")
	}
}

func TestParseRejectsBrokenCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "reordered steps",
			mutate:  func(doc string) string { return strings.Replace(doc, `id = "briefing"`, `id = "intro"`, 1) },
			wantErr: "step 0",
		},
		{
			name:    "unknown duration",
			mutate:  func(doc string) string { return strings.Replace(doc, `value = "longo"`, `value = "eterno"`, 1) },
			wantErr: "duration 2",
		},
		{
			name:    "no tones",
			mutate:  func(doc string) string { return strings.Replace(doc, "tones = [", "old_tones = [", 1) },
			wantErr: "missing tones",
		},
		{
			name:    "not toml",
			mutate:  func(string) string { return "tones = [" },
			wantErr: "decode catalog",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.mutate(defaultCatalog))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Parse err=%v want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile("")
	if err != nil || len(c.Steps) != 5 {
		t.Fatalf("LoadFile(\"\") err=%v", err)
	}

	doc := strings.Replace(defaultCatalog, `"Motivacional",`, `"Inspirador",`, 1)
	path := filepath.Join(t.TempDir(), "catalog.toml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err = LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Tones[0] != "Inspirador" {
		t.Fatalf("override not applied: %v", c.Tones)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
