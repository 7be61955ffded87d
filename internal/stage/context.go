// Package stage implements the five agent handlers the workflow engine
// dispatches through, each grounded on one of backend/nodes.py's agent
// functions: Planner, Retriever, Extractor, Writer, Critic.
package stage

import (
	"fmt"
	"strings"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

// buildConversationContext renders the last maxTurns*2 messages (i.e. the
// last maxTurns user/assistant pairs) as "Role: content" lines, dropping
// older messages when the history runs longer.
func buildConversationContext(messages []model.ConversationMessage, maxTurns int) string {
	if len(messages) == 0 {
		return ""
	}
	window := maxTurns * 2
	recent := messages
	if len(messages) > window {
		recent = messages[len(messages)-window:]
	}

	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		label := "Assistant"
		if m.Role == model.RoleUser {
			label = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, m.Content))
	}
	return strings.Join(lines, "\n")
}

// languageName maps a two-letter output_language code to the name the
// prompt templates expect; everything but "zh" renders as English.
func languageName(outputLanguage string) string {
	if outputLanguage == "zh" {
		return "Chinese"
	}
	return "English"
}

// buildPaperContext renders the numbered per-paper context block the
// Writer's outline/section/single-shot calls all share: index, title,
// year, up to 3 authors, core contribution, then either every populated
// structured-contribution field or a 200-char abstract preview.
func buildPaperContext(papers []model.Paper) string {
	blocks := make([]string, 0, len(papers))

	for i, p := range papers {
		var lines []string
		lines = append(lines, fmt.Sprintf("[%d] %s (Year: %s)", i+1, p.Title, yearOrNA(p.Year)))
		lines = append(lines, fmt.Sprintf("    Authors: %s", authorsPreview(p.Authors)))
		lines = append(lines, fmt.Sprintf("    Contribution: %s", p.CoreContribution))

		sc := p.StructuredContribution
		if sc != nil && !sc.IsEmpty() {
			appendField(&lines, "Problem", sc.Problem)
			appendField(&lines, "Method", sc.Method)
			appendField(&lines, "Novelty", sc.Novelty)
			appendField(&lines, "Dataset", sc.Dataset)
			appendField(&lines, "Baseline", sc.Baseline)
			appendField(&lines, "Results", sc.Results)
			appendField(&lines, "Limitations", sc.Limitations)
			appendField(&lines, "Future Work", sc.FutureWork)
		} else if p.Abstract != "" {
			lines = append(lines, fmt.Sprintf("    Abstract: %s", abstractPreview(p.Abstract, 200)))
		}

		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return strings.Join(blocks, "\n\n")
}

func appendField(lines *[]string, label string, value *string) {
	if value != nil && *value != "" {
		*lines = append(*lines, fmt.Sprintf("    %s: %s", label, *value))
	}
}

func authorsPreview(authors []string) string {
	if len(authors) <= 3 {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:3], ", ") + "..."
}

func abstractPreview(abstract string, max int) string {
	if len(abstract) <= max {
		return abstract
	}
	return abstract[:max] + "..."
}

func yearOrNA(y *int) string {
	if y == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *y)
}

// draftMaxTokens implements spec §4.4's token budget:
// min(8000, 2000 + 200*numPapers).
func draftMaxTokens(numPapers int) int {
	budget := 2000 + 200*numPapers
	if budget > 8000 {
		budget = 8000
	}
	return budget
}
