package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an assistant that classifies documents.
Analyze the content of a document and suggest:
- a correspondent (sender or issuer of the document)
- a document type
- relevant tags
- the document date, if visible
- an amount and currency, if the document is an invoice or receipt

Respond ONLY with valid JSON using this structure:
{
  "correspondent": "suggested name or null",
  "document_type": "suggested type or null",
  "tags": ["tag1", "tag2"],
  "document_date": "YYYY-MM-DD or null",
  "amount": 123.45,
  "currency": "EUR or null",
  "title_suggestion": "suggested title",
  "confidence": 0.0
}
Prefer names from the existing lists when one fits. confidence is between 0.0 and 1.0.`

// maxPromptText bounds the document text sent to the model.
const maxPromptText = 8000

func userPrompt(req Request) string {
	text := req.Text
	if r := []rune(text); len(r) > maxPromptText {
		text = string(r[:maxPromptText])
	}

	var b strings.Builder
	b.WriteString("Classify this document.\n\n")
	fmt.Fprintf(&b, "EXISTING CORRESPONDENTS: %s\n", list(req.Correspondents))
	fmt.Fprintf(&b, "EXISTING DOCUMENT TYPES: %s\n", list(req.DocumentTypes))
	fmt.Fprintf(&b, "EXISTING TAGS: %s\n\n", list(req.Tags))
	b.WriteString("DOCUMENT CONTENT:\n")
	b.WriteString(text)
	b.WriteString("\n\nRespond with JSON only, no additional text.")
	return b.String()
}

func list(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
