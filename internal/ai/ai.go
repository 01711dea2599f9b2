// Package ai provides model-backed document classification suggestions.
package ai

import (
	"context"
	"errors"
)

// Classification failures. Callers decide whether to degrade.
var (
	ErrUnavailable     = errors.New("ai classifier not configured")
	ErrProvider        = errors.New("ai provider error")
	ErrInvalidResponse = errors.New("ai response could not be parsed")
)

// Request is the document text plus the names of existing entities the
// model may choose from.
type Request struct {
	Text           string
	Correspondents []string
	DocumentTypes  []string
	Tags           []string
}

// Suggestion is the model's proposed classification. Names are free text
// and must be resolved to entity ids by the caller.
type Suggestion struct {
	Correspondent   *string  `json:"correspondent"`
	DocumentType    *string  `json:"document_type"`
	Tags            []string `json:"tags"`
	DocumentDate    *string  `json:"document_date"`
	Amount          *float64 `json:"amount"`
	Currency        *string  `json:"currency"`
	TitleSuggestion *string  `json:"title_suggestion"`
	Confidence      *float64 `json:"confidence"`
}

// Classifier produces suggestions for document text.
type Classifier interface {
	Available() bool
	Classify(ctx context.Context, req Request) (*Suggestion, error)
}

// Unavailable is the Classifier used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Classify(context.Context, Request) (*Suggestion, error) {
	return nil, ErrUnavailable
}
