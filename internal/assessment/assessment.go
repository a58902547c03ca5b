// Package assessment scores the five-question behavioral questionnaire.
package assessment

import "strings"

// PassThreshold is the minimum total required to pass.
const PassThreshold = 7

// Question is one fixed questionnaire item.
type Question struct {
	ID     string `json:"id"`
	Prompt string `json:"pergunta"`
}

// Questions is the fixed questionnaire, in the order it is asked.
var Questions = []Question{
	{ID: "pontualidade", Prompt: "Você consegue chegar no ponto de apoio no horário combinado diariamente? (sempre/às vezes/raramente)"},
	{ID: "epi_uniforme", Prompt: "Você topa usar uniforme completo e bag conforme padronização da farmácia? (sim/não)"},
	{ID: "rotas_app", Prompt: "Você se sente confortável em seguir rotas pelo app e manter comunicação no chat? (sim/não/parcial)"},
	{ID: "finais_semana", Prompt: "Você tem disponibilidade para pelo menos um turno em finais de semana? (sim/não)"},
	{ID: "boas_praticas", Prompt: "Em situação de atraso, você avisa a equipe com antecedência? (sempre/às vezes/nunca)"},
}

var lexicon = map[string]int{
	"sim":       2,
	"sempre":    2,
	"às vezes":  1,
	"as vezes":  1,
	"parcial":   1,
	"não":       0,
	"nao":       0,
	"raramente": 0,
	"nunca":     0,
}

// Item is the scored outcome for a single question.
type Item struct {
	ID     string `json:"id"`
	Answer string `json:"resposta"`
	Points int    `json:"pontos"`
}

// Result is the scored questionnaire.
type Result struct {
	Items     []Item `json:"detalhado"`
	Total     int    `json:"total"`
	Passed    bool   `json:"aprovado"`
	Threshold int    `json:"limiar"`
}

// Points returns the per-question points keyed by question id.
func (r Result) Points() map[string]int {
	out := make(map[string]int, len(r.Items))
	for _, it := range r.Items {
		out[it.ID] = it.Points
	}
	return out
}

// Score maps free-text answers keyed by question id to a result.
// Unknown or missing answers are worth zero points.
func Score(answers map[string]string) Result {
	res := Result{
		Items:     make([]Item, 0, len(Questions)),
		Threshold: PassThreshold,
	}
	for _, q := range Questions {
		txt := Normalize(answers[q.ID])
		pts := lexicon[txt]
		res.Items = append(res.Items, Item{ID: q.ID, Answer: txt, Points: pts})
		res.Total += pts
	}
	res.Passed = res.Total >= PassThreshold
	return res
}

// Normalize trims and case-folds an answer.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Recognized reports whether the answer belongs to the accepted vocabulary.
func Recognized(answer string) bool {
	_, ok := lexicon[Normalize(answer)]
	return ok
}

// Requirements is the outcome of the eligibility check.
type Requirements struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"faltantes"`
}

// Requirement labels, in the order they are asked.
const (
	RequirementMotorcycle = "Moto com documentação em dia"
	RequirementLicense    = "CNH categoria A"
	RequirementAndroid    = "Dispositivo Android"
)

// CheckRequirements lists the eligibility items the candidate lacks.
func CheckRequirements(motorcycle, licenseA, android bool) Requirements {
	missing := []string{}
	if !motorcycle {
		missing = append(missing, RequirementMotorcycle)
	}
	if !licenseA {
		missing = append(missing, RequirementLicense)
	}
	if !android {
		missing = append(missing, RequirementAndroid)
	}
	return Requirements{OK: len(missing) == 0, Missing: missing}
}
