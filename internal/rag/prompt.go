package rag

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

const persona = "You are a careful personal document assistant."

// buildPrompt selects one of three instruction templates: greet back,
// answer conservatively with no context, or answer strictly from the
// supplied document excerpts.
func buildPrompt(kind questionKind, results []domain.SearchResult, question string) string {
	if kind == kindGreeting {
		return fmt.Sprintf(`%s
Greet the user back warmly and briefly offer your help.

User: %s`, persona, question)
	}

	context := formatContext(results)
	if context == "" {
		return fmt.Sprintf(`%s

Rules:
- Answer briefly and politely.
- If you do not know something, say so honestly instead of guessing.

User question: %s`, persona, question)
	}

	return fmt.Sprintf(`%s

The following excerpts from the user's documents relate to their question:

=== reference documents start ===
%s
=== reference documents end ===

Rules:
1. Answer only from the reference documents above.
2. If the documents do not contain the answer, say "the documents do not contain this information" rather than guessing.
3. Mention the source file names you relied on.
4. Quote or summarize the documents concretely.
5. Keep the answer brief and polite.

User question: %s`, persona, context, question)
}

// formatContext joins retrieved chunk texts, each tagged with its source
// file name so the model can cite it.
func formatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		name := r.Metadata.FileName
		if name == "" {
			name = "unknown"
		}
		parts = append(parts, fmt.Sprintf("[source: %s]\n%s", name, r.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
