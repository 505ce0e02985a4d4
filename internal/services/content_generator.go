// internal/services/content_generator.go
package services

import (
	"fmt"
	"strings"

	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

// timeMarkers holds the storyboard timestamps available per duration bucket
var timeMarkers = map[models.Duration][]string{
	models.DurationShort:  {"00:00", "00:45", "01:30", "02:15", "03:00"},
	models.DurationMedium: {"00:00", "01:00", "02:30", "04:00", "06:30", "09:00"},
	models.DurationLong:   {"00:00", "01:30", "03:30", "06:00", "09:30", "12:00", "14:30"},
}

// fallbackMarkers is used per scene index when a table has no entry for it
var fallbackMarkers = []string{"00:00", "00:45", "01:30", "02:15", "03:00"}

var spokenMinutes = map[models.Duration]string{
	models.DurationShort:  "5",
	models.DurationMedium: "10",
	models.DurationLong:   "15",
}

var pacingByDuration = map[models.Duration]string{
	models.DurationShort:  "Dinâmico, frases curtas, pouca pausa",
	models.DurationMedium: "Ritmo equilibrado com respiros estratégicos",
	models.DurationLong:   "Ritmo cadenciado, ênfase em storytelling",
}

// GenerateWorkflowResult builds the complete artifact bundle for one run
func GenerateWorkflowResult(in models.BriefingInput) *models.WorkflowResult {
	return &models.WorkflowResult{
		Script:    GenerateScript(in),
		Narration: GenerateNarration(in),
		Scenes:    GenerateScenes(in.Duration),
		BRoll:     GenerateBroll(in),
		Tasks:     GenerateTasks(),
		Checklist: GenerateChecklist(),
	}
}

// GenerateScript fills the hook, introduction, sections and conclusion
func GenerateScript(in models.BriefingInput) models.VideoScript {
	mood := strings.ToLower(in.Tone)
	focus := in.Benefit
	if focus == "" {
		focus = in.Topic
	}

	sections := []models.ScriptSection{
		{
			Title: "Contexto e oportunidade",
			Body: fmt.Sprintf("Por que o tema \"%s\" é crítico para %s. Mostre dados ou números que validem a urgência e conecte com o formato %s.",
				in.Topic, in.Audience, strings.ToLower(in.Format)),
		},
		{
			Title: "Plano passo a passo",
			Body: fmt.Sprintf("Apresente de 3 a 5 passos claros que geram o resultado prometido. Use linguagem direta, exemplos do nicho %s e reforce a palavra-chave \"%s\".",
				in.Niche, in.Keyword),
		},
		{
			Title: "Virada emocional",
			Body: fmt.Sprintf("Relato pessoal ou case curto que mostre transformação real. Construa tensão e alivie com a solução proposta mantendo o tom %s.",
				mood),
		},
	}

	hook := fmt.Sprintf("Você está ignorando %s? Em menos de %s minutos eu te mostro como %s.",
		in.Keyword, spokenDuration(in.Duration), strings.ToLower(focus))

	intro := fmt.Sprintf("Este vídeo é para %s. Vamos mergulhar em %s com um olhar %s, trazendo estratégias comprovadas no universo %s.",
		in.Audience, in.Topic, mood, in.Niche)

	titles := make([]string, len(sections))
	for i, section := range sections {
		titles[i] = strings.ToLower(section.Title)
	}
	conclusion := fmt.Sprintf("Recapitulando: %s. %s", strings.Join(titles, ", "), in.CallToAction)

	return models.VideoScript{
		Hook:         hook,
		Introduction: intro,
		Sections:     sections,
		Conclusion:   conclusion,
	}
}

// spokenDuration maps any bucket other than curto/médio to the long phrase
func spokenDuration(d models.Duration) string {
	if minutes, ok := spokenMinutes[d]; ok {
		return minutes
	}
	return spokenMinutes[models.DurationLong]
}

// GenerateNarration derives voice direction from the briefing
func GenerateNarration(in models.BriefingInput) models.NarrationPlan {
	pacing, ok := pacingByDuration[in.Duration]
	if !ok {
		pacing = pacingByDuration[models.DurationLong]
	}

	candidates := []string{
		in.Benefit,
		"O maior erro em " + in.Topic,
		"Transformação real para " + in.Audience,
	}
	emphasis := make([]string, 0, len(candidates))
	for _, phrase := range candidates {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		emphasis = append(emphasis, phrase)
	}

	return models.NarrationPlan{
		Tone:   in.Tone,
		Pacing: pacing,
		Pauses: []string{
			"Após o gancho inicial para deixar a mensagem assentar",
			"No final de cada passo importante para reforçar memorização",
			"Antes da CTA final para gerar atenção",
		},
		Emphasis: emphasis,
	}
}

// GenerateScenes returns the five storyboard scenes for a duration bucket
func GenerateScenes(d models.Duration) []models.ScenePlan {
	markers := timeMarkers[d]
	marker := func(i int) string {
		if i < len(markers) {
			return markers[i]
		}
		return fallbackMarkers[i]
	}

	return []models.ScenePlan{
		{
			Timestamp:   marker(0),
			Objective:   "Capturar atenção imediata",
			Description: "Host em close-up com energia e pergunta provocativa sobre o problema do público.",
			Visual:      "Close dinâmico + texto animado ressaltando a dor principal com a palavra-chave.",
		},
		{
			Timestamp:   marker(1),
			Objective:   "Contextualizar o problema",
			Description: "Cortes rápidos do universo do nicho mostrando o cenário atual e números-chave.",
			Visual:      "Motion graphics com estatísticas, tela dividida com múltiplos exemplos.",
		},
		{
			Timestamp:   marker(2),
			Objective:   "Entregar framework",
			Description: "Apresentação passo a passo com quadros, post-its ou tela compartilhada.",
			Visual:      "B-roll com mão escrevendo, animação com setas guiando o passo a passo.",
		},
		{
			Timestamp:   marker(3),
			Objective:   "Storytelling",
			Description: "Cena com luz mais baixa ou cenário alternativo para relato pessoal/cliente.",
			Visual:      "Overlays com fotos reais, texto com momentos-chave da transformação.",
		},
		{
			Timestamp:   marker(4),
			Objective:   "Chamada para ação",
			Description: "Retorno ao cenário principal, olhar direto para câmera reforçando CTA.",
			Visual:      "Texto animado com CTA, ícones do YouTube e link para material extra.",
		},
	}
}

// GenerateBroll suggests five B-roll clips
func GenerateBroll(in models.BriefingInput) []string {
	return []string{
		"Cenas de contexto do nicho " + in.Niche,
		fmt.Sprintf("Planos detalhe ilustrando \"%s\"", in.Keyword),
		"Footage de resultados ou antes/depois",
		"Gráficos animados com percentuais relevantes",
		"Clipes da persona enfrentando o problema citado",
	}
}

// GenerateTasks returns the fixed post-production task list
func GenerateTasks() []string {
	return []string{
		"Escrever descrição otimizada com palavra-chave nas 120 primeiras letras.",
		"Criar thumbnail com duas versões A/B e headline com contraste alto.",
		"Preparar pacote de legendas automáticas e revisar termos técnicos.",
		"Selecionar trilha sem direitos autorais com três camadas de intensidade.",
		"Configurar cartões finais e telas finais com playlists relacionadas.",
	}
}

// GenerateChecklist returns the fixed pre-publish checklist
func GenerateChecklist() []string {
	return []string{
		"Hook gravado com três variações de entonação.",
		"Assets visuais organizados em pastas: roteiro, B-roll, gráficos.",
		"Roteiro convertido em teleprompter com marcações de pausa.",
		"Checklist de SEO: título, tags, descrição, capítulos.",
		"Fluxo de automação: upload, legendas, thumbnail, publicação.",
	}
}

// StepSummary extracts the short text revealed when a step completes
func StepSummary(id models.StepID, in models.BriefingInput, result *models.WorkflowResult) string {
	switch id {
	case models.StepBriefing:
		return strings.Join([]string{
			"Público: " + in.Audience,
			"Posicionamento: " + in.Niche,
			"Promessa central: " + in.Benefit,
		}, "\n")
	case models.StepRoteiro:
		return strings.Join([]string{
			"Gancho: " + result.Script.Hook,
			fmt.Sprintf("Tópicos: %d", len(result.Script.Sections)),
			"CTA: " + in.CallToAction,
		}, "\n")
	case models.StepNarracao:
		return strings.Join([]string{
			"Tom: " + result.Narration.Tone,
			"Ritmo: " + result.Narration.Pacing,
			fmt.Sprintf("Ênfases: %d", len(result.Narration.Emphasis)),
		}, "\n")
	case models.StepStoryboard:
		return fmt.Sprintf("Cenas geradas: %d", len(result.Scenes))
	case models.StepPosProducao:
		return fmt.Sprintf("B-roll sugerido: %d clipes\nTarefas finais: %d", len(result.BRoll), len(result.Tasks))
	default:
		return ""
	}
}
