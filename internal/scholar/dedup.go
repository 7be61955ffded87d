package scholar

import (
	"strings"
	"unicode"

	"github.com/tangerg-labs/autoscholar/internal/model"
)

// Deduplicate removes exact PaperID repeats, then folds title collisions
// together under a normalized (lowercased, alnum+space, whitespace
// collapsed) key. Semantic Scholar wins a title collision over arXiv or
// PubMed, since it carries the richer metadata (abstract, open-access PDF).
func Deduplicate(papers []model.Paper) []model.Paper {
	seenIDs := make(map[string]struct{})
	seenTitles := make(map[string]int) // normalized title -> index in result
	var result []model.Paper

	for _, paper := range papers {
		if _, dup := seenIDs[paper.PaperID]; dup {
			continue
		}
		seenIDs[paper.PaperID] = struct{}{}

		normalized := normalizeTitle(paper.Title)

		if idx, exists := seenTitles[normalized]; exists {
			if paper.Source == model.SourceSemanticScholar {
				result[idx] = paper
			}
			continue
		}

		seenTitles[normalized] = len(result)
		result = append(result, paper)
	}

	return result
}

func normalizeTitle(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
