package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allAnswers(v string) map[string]string {
	out := map[string]string{}
	for _, q := range Questions {
		out[q.ID] = v
	}
	return out
}

func TestScore_EmptyAnswersFail(t *testing.T) {
	t.Parallel()

	res := Score(map[string]string{})
	assert.Equal(t, 0, res.Total)
	assert.False(t, res.Passed)
	assert.Len(t, res.Items, len(Questions))

	res = Score(nil)
	assert.Equal(t, 0, res.Total)
	assert.False(t, res.Passed)
}

func TestScore_AllTopAnswersPass(t *testing.T) {
	t.Parallel()

	answers := map[string]string{
		"pontualidade":  "sempre",
		"epi_uniforme":  "sim",
		"rotas_app":     "SIM",
		"finais_semana": "  sim ",
		"boas_praticas": "Sempre",
	}
	res := Score(answers)
	assert.Equal(t, 10, res.Total)
	assert.True(t, res.Passed)
	assert.Equal(t, PassThreshold, res.Threshold)
}

func TestScore_FourTopAnswersAndOneMissingPass(t *testing.T) {
	t.Parallel()

	answers := allAnswers("sim")
	delete(answers, "boas_praticas")

	res := Score(answers)
	assert.Equal(t, 8, res.Total)
	assert.True(t, res.Passed)
	assert.Equal(t, 0, res.Points()["boas_praticas"])
}

func TestScore_AllNegativeFail(t *testing.T) {
	t.Parallel()

	res := Score(allAnswers("não"))
	assert.Equal(t, 0, res.Total)
	assert.False(t, res.Passed)

	res = Score(allAnswers("nao"))
	assert.Equal(t, 0, res.Total)
}

func TestScore_PartialAnswers(t *testing.T) {
	t.Parallel()

	answers := map[string]string{
		"pontualidade":  "às vezes",
		"epi_uniforme":  "sim",
		"rotas_app":     "parcial",
		"finais_semana": "sim",
		"boas_praticas": "as vezes",
	}
	res := Score(answers)
	assert.Equal(t, 7, res.Total)
	assert.True(t, res.Passed, "7 meets the threshold")

	answers["boas_praticas"] = "talvez"
	res = Score(answers)
	assert.Equal(t, 6, res.Total)
	assert.False(t, res.Passed)
}

func TestScore_TotalIsSumOfItems(t *testing.T) {
	t.Parallel()

	inputs := []string{"sim", "sempre", "às vezes", "parcial", "não", "nunca", "raramente", "", "qualquer coisa"}
	for _, a := range inputs {
		for _, b := range inputs {
			answers := allAnswers(a)
			answers["rotas_app"] = b
			res := Score(answers)

			sum := 0
			for _, it := range res.Items {
				sum += it.Points
			}
			require.Equal(t, sum, res.Total)
			require.GreaterOrEqual(t, res.Total, 0)
			require.LessOrEqual(t, res.Total, 10)
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	t.Parallel()

	answers := allAnswers("sempre")
	answers["rotas_app"] = "parcial"
	first := Score(answers)
	second := Score(answers)
	assert.Equal(t, first, second)
}

func TestRecognized(t *testing.T) {
	t.Parallel()

	assert.True(t, Recognized(" Às Vezes "))
	assert.True(t, Recognized("NUNCA"))
	assert.False(t, Recognized("depende"))
	assert.False(t, Recognized(""))
}

func TestCheckRequirements(t *testing.T) {
	t.Parallel()

	res := CheckRequirements(true, true, true)
	assert.True(t, res.OK)
	assert.Empty(t, res.Missing)

	res = CheckRequirements(false, true, false)
	assert.False(t, res.OK)
	assert.Equal(t, []string{RequirementMotorcycle, RequirementAndroid}, res.Missing)
}
