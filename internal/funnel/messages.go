package funnel

import (
	"fmt"
	"strings"

	"github.com/metalagman/coopfunnel/internal/assessment"
)

// Fixed replies. Kept short: WhatsApp users read on a phone.
const (
	msgAskCity          = "Em que cidade você atua?"
	msgCityAgain        = "Não entendi a cidade. Em que cidade você atua?"
	msgAskAgreement     = "Concorda e quer prosseguir? (sim/não)"
	msgClarifyAgreement = "Não entendi. Você concorda com as condições da cooperativa e quer prosseguir? Responda sim ou não."
	msgDeclined         = "Tudo bem! Agradecemos seu interesse. Se mudar de ideia, é só mandar \"recomeçar\". Até mais!"
	msgAssessmentIntro  = "Ótimo, você tem todos os requisitos! Agora vou fazer 5 perguntas rápidas, uma por vez."
	msgClarifyAnswer    = "Não entendi sua resposta."
	msgNotApproved      = "Obrigado por responder! Neste momento seu perfil não atende aos critérios da cooperativa. Agradecemos muito seu interesse e desejamos boa sorte!"
	msgApproved         = "Parabéns, você foi aprovado(a) na avaliação! Toque em *Ver vagas* e selecione uma opção."
	msgPickFromList     = "Para escolher, toque em *Ver vagas* e selecione uma vaga da lista."
	msgUnknownPosition  = "Não encontrei essa vaga. Toque em *Ver vagas* e escolha uma das opções da lista."
	msgNotYetApproved   = "Para escolher uma vaga, primeiro precisamos concluir sua triagem."
	msgInterestSaved    = "Pronto, registrei seu interesse! Avisaremos quando abrirem vagas na sua cidade. Obrigado!"
	msgInterestSkipped  = "Tudo bem! Se quiser tentar novamente depois, é só mandar \"recomeçar\". Até mais!"
	msgClarifyInterest  = "Não entendi. Quer registrar seu interesse para ser avisado(a) quando abrirem vagas? (sim/não)"
	msgRestartHint      = "Se quiser começar de novo, mande \"recomeçar\"."
	msgCoopUnavailable  = "Cooperativa: informações indisponíveis no momento."
)

var requirementPrompts = []string{
	"Você tem moto com documentação em dia? (sim/não)",
	"Você tem CNH categoria A? (sim/não)",
	"Seu celular é Android? (sim/não)",
}

func greeting(name string, p Presentation) string {
	var b strings.Builder
	if base := strings.TrimSpace(p.Messages["apresentacao"]); base != "" {
		if fn := firstName(name); fn != "" {
			b.WriteString("Olá, " + fn + "! ")
		}
		b.WriteString(base)
	} else {
		b.WriteString("Olá")
		if fn := firstName(name); fn != "" {
			b.WriteString(", " + fn)
		}
		b.WriteString("! Eu sou o assistente de triagem da CoopMob, parceira da Flux Farma, para entregadores de farmácia.")
	}
	b.WriteString("\n\n")
	b.WriteString(msgAskCity)
	return b.String()
}

func policyPresentation(city string, count int, p Presentation) string {
	summary := strings.TrimSpace(p.Summary)
	if summary == "" {
		summary = msgCoopUnavailable
	}
	noun := "vagas abertas"
	if count == 1 {
		noun = "vaga aberta"
	}
	return fmt.Sprintf("Encontrei %d %s em %s.\n\n%s\n\n%s", count, noun, city, summary, msgAskAgreement)
}

func noPositions(city string) string {
	return fmt.Sprintf("No momento não há vagas abertas em %s. Quer registrar seu interesse para ser avisado(a) quando abrirem? (sim/não)", city)
}

func requirementPrompt(i int) string {
	return requirementPrompts[i]
}

func requirementsMissing(missing []string) string {
	return fmt.Sprintf("Para atuar com a cooperativa é preciso: %s. Infelizmente faltou: %s. Agradecemos seu interesse, e quando tiver tudo em ordem é só mandar \"recomeçar\"!",
		strings.Join([]string{assessment.RequirementMotorcycle, assessment.RequirementLicense, assessment.RequirementAndroid}, ", "),
		strings.Join(missing, ", "))
}

func questionPrompt(i int) string {
	return fmt.Sprintf("Pergunta %d/%d: %s", i+1, len(assessment.Questions), assessment.Questions[i].Prompt)
}

func positionConfirmed(p Position, link string) string {
	next := "Em breve enviaremos por aqui o link para concluir sua matrícula."
	if link != "" {
		next = "Para concluir sua matrícula, acesse: " + link
	}
	return fmt.Sprintf("Vaga confirmada: %s — %s (taxa %s).\n\n%s\n\nObrigado e boas entregas!",
		orPlaceholder(p.Employer), orPlaceholder(p.Shift), orPlaceholder(p.DeliveryFee), next)
}

func completeReminder(link string) string {
	if link == "" {
		return "Sua inscrição já foi concluída. " + msgRestartHint
	}
	return "Sua inscrição já foi concluída. Para finalizar a matrícula, acesse: " + link
}

func closedReminder() string {
	return "Nossa conversa foi encerrada. " + msgRestartHint
}
