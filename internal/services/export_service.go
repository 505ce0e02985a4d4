// internal/services/export_service.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Corphon/AgenticVideoStudio/internal/errors"
	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

// Export formats
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

const blueprintVersion = "1.0"

// ExportService renders finished blueprints
type ExportService struct {
	studio *StudioService
}

// NewExportService creates an export service over the studio sessions
func NewExportService(studio *StudioService) *ExportService {
	return &ExportService{studio: studio}
}

// ExportBlueprint renders the session's published result in format
func (s *ExportService) ExportBlueprint(sessionID, format string) (*models.ExportResult, error) {
	format = normalizeFormat(format)
	if format == "" {
		return nil, apperrors.NewValidationError("unsupported export format", "format")
	}

	snap, err := s.studio.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if snap.IsRunning || snap.Result == nil {
		return nil, apperrors.NewConflictError("result not ready", nil)
	}

	now := s.studio.clock.Now()
	blueprint := models.Blueprint{
		Briefing:    snap.Briefing,
		Steps:       snap.Steps,
		Result:      *snap.Result,
		GeneratedAt: now.Format("2006-01-02 15:04:05"),
		Version:     blueprintVersion,
	}

	content, contentType, ext, err := formatBlueprint(blueprint, format)
	if err != nil {
		return nil, apperrors.NewProcessingError("export failed", err)
	}

	return &models.ExportResult{
		SessionID:   sessionID,
		Format:      format,
		ContentType: contentType,
		FileName:    fmt.Sprintf("plano-video-%s.%s", fileSlug(snap.Briefing.Topic, sessionID), ext),
		Content:     content,
		GeneratedAt: now,
	}, nil
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "markdown", "md":
		return FormatMarkdown
	default:
		return ""
	}
}

func formatBlueprint(b models.Blueprint, format string) (string, string, string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return "", "", "", fmt.Errorf("json encode: %w", err)
		}
		return string(data), "application/json; charset=utf-8", "json", nil
	case FormatYAML:
		data, err := yaml.Marshal(b)
		if err != nil {
			return "", "", "", fmt.Errorf("yaml encode: %w", err)
		}
		return string(data), "application/x-yaml; charset=utf-8", "yaml", nil
	case FormatMarkdown:
		return formatAsMarkdown(b), "text/markdown; charset=utf-8", "md", nil
	default:
		return "", "", "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatAsMarkdown(b models.Blueprint) string {
	var content strings.Builder
	r := b.Result

	content.WriteString(fmt.Sprintf("# Plano de vídeo: %s\n\n", b.Briefing.Topic))

	content.WriteString("## Briefing\n\n")
	content.WriteString(fmt.Sprintf("- **Nicho**: %s\n", b.Briefing.Niche))
	content.WriteString(fmt.Sprintf("- **Público**: %s\n", b.Briefing.Audience))
	content.WriteString(fmt.Sprintf("- **Tom**: %s\n", b.Briefing.Tone))
	content.WriteString(fmt.Sprintf("- **Duração**: %s\n", b.Briefing.Duration))
	content.WriteString(fmt.Sprintf("- **Formato**: %s\n", b.Briefing.Format))
	content.WriteString(fmt.Sprintf("- **Palavra-chave**: %s\n", b.Briefing.Keyword))
	content.WriteString(fmt.Sprintf("- **Benefício**: %s\n", b.Briefing.Benefit))
	content.WriteString(fmt.Sprintf("- **Gerado em**: %s\n\n", b.GeneratedAt))

	content.WriteString("## Roteiro\n\n")
	content.WriteString(fmt.Sprintf("**Gancho**: %s\n\n", r.Script.Hook))
	content.WriteString(fmt.Sprintf("**Introdução**: %s\n\n", r.Script.Introduction))
	for _, section := range r.Script.Sections {
		content.WriteString(fmt.Sprintf("### %s\n\n%s\n\n", section.Title, section.Body))
	}
	content.WriteString(fmt.Sprintf("**Conclusão**: %s\n\n", r.Script.Conclusion))

	content.WriteString("## Narração\n\n")
	content.WriteString(fmt.Sprintf("- **Tom**: %s\n", r.Narration.Tone))
	content.WriteString(fmt.Sprintf("- **Ritmo**: %s\n\n", r.Narration.Pacing))
	writeList(&content, "Pausas", r.Narration.Pauses)
	writeList(&content, "Ênfases", r.Narration.Emphasis)

	content.WriteString("## Storyboard\n\n")
	content.WriteString("| Tempo | Objetivo | Cena | Visual |\n")
	content.WriteString("|---|---|---|---|\n")
	for _, scene := range r.Scenes {
		content.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			scene.Timestamp, escapeCell(scene.Objective), escapeCell(scene.Description), escapeCell(scene.Visual)))
	}
	content.WriteString("\n")

	content.WriteString("## Pós-produção\n\n")
	writeList(&content, "B-roll", r.BRoll)
	writeList(&content, "Tarefas", r.Tasks)

	content.WriteString("### Checklist\n\n")
	for _, item := range r.Checklist {
		content.WriteString(fmt.Sprintf("- [ ] %s\n", item))
	}
	return content.String()
}

func writeList(content *strings.Builder, title string, items []string) {
	content.WriteString(fmt.Sprintf("### %s\n\n", title))
	for _, item := range items {
		content.WriteString(fmt.Sprintf("- %s\n", item))
	}
	content.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// fileSlug keeps ASCII letters and digits of the topic, falling back to the session id
func fileSlug(topic, sessionID string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		if len(sessionID) > 8 {
			return sessionID[:8]
		}
		return sessionID
	}
	return slug
}
