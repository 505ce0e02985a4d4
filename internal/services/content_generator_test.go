package services

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

func seoBriefing() models.BriefingInput {
	return models.BriefingInput{
		Niche:        "Marketing digital",
		Topic:        "SEO para clínicas",
		Audience:     "Donos de clínicas",
		Tone:         "Educativo",
		Duration:     models.DurationShort,
		Format:       "Estudo de caso",
		CallToAction: models.DefaultCallToAction,
		Keyword:      "SEO local",
		Benefit:      "Triplicar agendamentos",
	}
}

func TestSEOScenario(t *testing.T) {
	result := GenerateWorkflowResult(seoBriefing())

	hook := result.Script.Hook
	if !strings.Contains(hook, "5") || !strings.Contains(hook, "SEO local") {
		t.Fatalf("unexpected hook %q", hook)
	}
	if !strings.Contains(hook, "triplicar agendamentos") {
		t.Fatalf("hook should lower-case the benefit: %q", hook)
	}

	var stamps []string
	for _, scene := range result.Scenes {
		stamps = append(stamps, scene.Timestamp)
	}
	want := []string{"00:00", "00:45", "01:30", "02:15", "03:00"}
	if !reflect.DeepEqual(stamps, want) {
		t.Fatalf("timestamps=%v want %v", stamps, want)
	}
}

func TestHookSpokenDuration(t *testing.T) {
	for d, minutes := range map[models.Duration]string{
		models.DurationShort:  "Em menos de 5 minutos",
		models.DurationMedium: "Em menos de 10 minutos",
		models.DurationLong:   "Em menos de 15 minutos",
	} {
		in := seoBriefing()
		in.Duration = d
		if hook := GenerateScript(in).Hook; !strings.Contains(hook, minutes) {
			t.Fatalf("%s: hook %q missing %q", d, hook, minutes)
		}
	}
}

func TestHookFallsBackToTopic(t *testing.T) {
	in := seoBriefing()
	in.Benefit = ""
	if hook := GenerateScript(in).Hook; !strings.HasSuffix(hook, "como seo para clínicas.") {
		t.Fatalf("unexpected hook %q", hook)
	}
}

func TestScriptSectionsAndConclusion(t *testing.T) {
	script := GenerateScript(seoBriefing())
	if len(script.Sections) != 3 {
		t.Fatalf("sections=%d", len(script.Sections))
	}
	want := "Recapitulando: contexto e oportunidade, plano passo a passo, virada emocional. " + models.DefaultCallToAction
	if script.Conclusion != want {
		t.Fatalf("conclusion=%q", script.Conclusion)
	}
	if !strings.Contains(script.Sections[0].Body, "formato estudo de caso") {
		t.Fatalf("format should be lower-cased: %q", script.Sections[0].Body)
	}
	if !strings.Contains(script.Sections[2].Body, "tom educativo") {
		t.Fatalf("tone should be lower-cased: %q", script.Sections[2].Body)
	}
}

func TestScenesAlwaysFive(t *testing.T) {
	for _, d := range []models.Duration{models.DurationShort, models.DurationMedium, models.DurationLong, "desconhecido"} {
		scenes := GenerateScenes(d)
		if len(scenes) != 5 {
			t.Fatalf("%q: %d scenes", d, len(scenes))
		}
	}
	if got := GenerateScenes(models.DurationLong)[4].Timestamp; got != "09:30" {
		t.Fatalf("long scene 5 at %q", got)
	}
}

func TestScenesFallbackMarkers(t *testing.T) {
	scenes := GenerateScenes("desconhecido")
	for i, scene := range scenes {
		if scene.Timestamp != fallbackMarkers[i] {
			t.Fatalf("scene %d timestamp=%q want %q", i, scene.Timestamp, fallbackMarkers[i])
		}
	}

	// a table shorter than five entries only falls back for the missing indexes
	saved := timeMarkers[models.DurationShort]
	timeMarkers[models.DurationShort] = []string{"00:00", "00:10"}
	defer func() { timeMarkers[models.DurationShort] = saved }()

	scenes = GenerateScenes(models.DurationShort)
	if scenes[1].Timestamp != "00:10" || scenes[2].Timestamp != "01:30" {
		t.Fatalf("unexpected partial fallback %q %q", scenes[1].Timestamp, scenes[2].Timestamp)
	}
}

func TestNarrationEmphasisFiltersBlank(t *testing.T) {
	in := seoBriefing()
	in.Benefit = "   \t  "
	plan := GenerateNarration(in)

	if len(plan.Emphasis) != 2 {
		t.Fatalf("emphasis=%q", plan.Emphasis)
	}
	for _, phrase := range plan.Emphasis {
		if strings.TrimSpace(phrase) == "" {
			t.Fatalf("blank emphasis entry in %q", plan.Emphasis)
		}
	}

	plan = GenerateNarration(seoBriefing())
	if len(plan.Emphasis) != 3 || plan.Emphasis[0] != "Triplicar agendamentos" {
		t.Fatalf("emphasis=%q", plan.Emphasis)
	}
	if plan.Pacing != "Dinâmico, frases curtas, pouca pausa" || len(plan.Pauses) != 3 {
		t.Fatalf("unexpected plan %#v", plan)
	}
}

func TestProductionPackage(t *testing.T) {
	result := GenerateWorkflowResult(seoBriefing())
	if len(result.BRoll) != 5 || len(result.Tasks) != 5 || len(result.Checklist) != 5 {
		t.Fatalf("broll=%d tasks=%d checklist=%d", len(result.BRoll), len(result.Tasks), len(result.Checklist))
	}
	if result.BRoll[1] != `Planos detalhe ilustrando "SEO local"` {
		t.Fatalf("unexpected broll %q", result.BRoll[1])
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	a := GenerateWorkflowResult(seoBriefing())
	b := GenerateWorkflowResult(seoBriefing())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two runs over the same briefing differ")
	}
}

func TestStepSummary(t *testing.T) {
	in := seoBriefing()
	result := GenerateWorkflowResult(in)

	tests := []struct {
		id   models.StepID
		want string
	}{
		{models.StepBriefing, "Público: Donos de clínicas\nPosicionamento: Marketing digital\nPromessa central: Triplicar agendamentos"},
		{models.StepRoteiro, "Gancho: " + result.Script.Hook + "\nTópicos: 3\nCTA: " + in.CallToAction},
		{models.StepNarracao, "Tom: Educativo\nRitmo: Dinâmico, frases curtas, pouca pausa\nÊnfases: 3"},
		{models.StepStoryboard, "Cenas geradas: 5"},
		{models.StepPosProducao, "B-roll sugerido: 5 clipes\nTarefas finais: 5"},
		{"desconhecido", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			if got := StepSummary(tt.id, in, result); got != tt.want {
				t.Fatalf("StepSummary=%q want %q", got, tt.want)
			}
		})
	}
}
