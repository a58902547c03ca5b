package funnel

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases, trims and strips diacritics so "Não" and "nao" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Answer is a parsed yes/no reply.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

var (
	yesWords = map[string]bool{
		"sim": true, "s": true, "ss": true, "claro": true, "concordo": true, "quero": true, "ok": true,
		"okay": true, "yes": true, "y": true, "tenho": true, "possuo": true, "uso": true, "certo": true,
		"isso": true, "positivo": true, "bora": true, "vamos": true, "aceito": true, "pode": true,
		"true": true, "verdadeiro": true, "1": true,
	}
	noWords = map[string]bool{
		"nao": true, "n": true, "no": true, "nunca": true, "negativo": true, "discordo": true,
		"false": true, "falso": true, "0": true,
	}
	restartWords = map[string]bool{
		"recomecar": true, "reiniciar": true, "comecar de novo": true, "reset": true,
	}
)

// ParseAnswer classifies a free-text yes/no reply. Only the first word counts when the
// whole reply is not itself a known answer.
func ParseAnswer(text string) Answer {
	s := strings.Trim(Fold(text), " .,!?;:")
	if s == "" {
		return AnswerUnknown
	}
	if a := classify(s); a != AnswerUnknown {
		return a
	}
	first := strings.Trim(strings.Fields(s)[0], " .,!?;:")
	return classify(first)
}

func classify(s string) Answer {
	switch {
	case yesWords[s]:
		return AnswerYes
	case noWords[s]:
		return AnswerNo
	}
	return AnswerUnknown
}

// IsRestart reports whether the reply asks to start the funnel over.
func IsRestart(text string) bool {
	return restartWords[strings.Trim(Fold(text), " .,!?;:")]
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
