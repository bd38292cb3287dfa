package agent

import (
	"strings"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
)

const markdownInstruction = "Use markdown to format your answers."

func (a *Agent) systemPrompt(sess *domain.Session) string {
	var b strings.Builder

	if a.Description != "" {
		b.WriteString("<description>\n")
		b.WriteString(a.Description)
		b.WriteString("\n</description>\n")
	}

	var extra []string
	if a.Markdown {
		extra = append(extra, markdownInstruction)
	}
	if a.AddDatetimeToContext {
		extra = append(extra, "The current time is "+a.clock().Format("2006-01-02 15:04:05 MST")+".")
	}
	if len(extra) > 0 {
		b.WriteString("<additional_information>\n")
		for _, e := range extra {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteString("\n")
		}
		b.WriteString("</additional_information>\n")
	}

	if sess != nil && sess.Summary != nil && sess.Summary.Summary != "" {
		b.WriteString("<summary_of_previous_interactions>\n")
		b.WriteString(sess.Summary.Summary)
		if len(sess.Summary.Topics) > 0 {
			b.WriteString("\nTopics: ")
			b.WriteString(strings.Join(sess.Summary.Topics, ", "))
		}
		b.WriteString("\n</summary_of_previous_interactions>\n")
	}

	return strings.TrimSpace(b.String())
}
