// Package rules implements pattern-based document classification.
// Entities are matched with the matching engine; dates and amounts are
// extracted from the document text.
package rules

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/classifications"
	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/matching"
)

// scoredFields is the number of fields contributing to confidence:
// correspondent, document type, date, amount and tags.
const scoredFields = 5

// Engine classifies documents from configured match rules.
type Engine struct {
	matcher matching.System
	logger  *slog.Logger
}

// New creates an Engine over matcher.
func New(matcher matching.System, logger *slog.Logger) *Engine {
	return &Engine{
		matcher: matcher,
		logger:  logger.With("system", "rules"),
	}
}

// Classify returns the rule-derived classification of doc.
func (e *Engine) Classify(ctx context.Context, doc *documents.Document) (*classifications.Result, error) {
	text := doc.Text()
	m := e.matcher.Apply(ctx, text)

	r := &classifications.Result{
		Method:   classifications.MethodRules,
		TagIDs:   []uuid.UUID{},
		TagNames: []string{},
	}

	if len(m.Correspondents) > 0 {
		c := m.Correspondents[0]
		r.CorrespondentID = &c.ID
		r.CorrespondentName = &c.Name
	}

	if len(m.DocumentTypes) > 0 {
		t := m.DocumentTypes[0]
		r.DocumentTypeID = &t.ID
		r.DocumentTypeName = &t.Name
	}

	for _, tag := range m.Tags {
		r.TagIDs = append(r.TagIDs, tag.ID)
		r.TagNames = append(r.TagNames, tag.Name)
	}

	r.DocumentDate = ExtractDate(text)

	if amount, ok := ExtractAmount(text); ok {
		r.Amount = &amount.Value
		r.Currency = &amount.Currency
	}

	r.Confidence = confidence(r)

	e.logger.DebugContext(
		ctx,
		"rules evaluated",
		"document_id", doc.ID,
		"tags", len(r.TagIDs),
		"confidence", r.Confidence,
	)

	return r, nil
}

func confidence(r *classifications.Result) float64 {
	score := 0
	if r.CorrespondentID != nil {
		score++
	}
	if r.DocumentTypeID != nil {
		score++
	}
	if r.DocumentDate != nil {
		score++
	}
	if r.Amount != nil {
		score++
	}
	if len(r.TagIDs) > 0 {
		score++
	}
	return float64(score) / scoredFields
}
