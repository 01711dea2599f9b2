// Package classifications reconciles rule-based and AI-based document
// classification into a single result with a confidence score and a
// review flag, and applies accepted results to documents.
package classifications

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
)

// Method identifies a configured strategy or the path a classification took.
type Method string

const (
	MethodRules         Method = "rules"
	MethodAI            Method = "ai"
	MethodAuto          Method = "auto"
	MethodAutoMerged    Method = "auto_merged"
	MethodRulesFallback Method = "rules_fallback"
)

// ParseMethod returns the configured strategy named by s.
// Anything other than rules or ai selects auto.
func ParseMethod(s string) Method {
	switch Method(s) {
	case MethodRules, MethodAI:
		return Method(s)
	}
	return MethodAuto
}

// Provenance sources.
const (
	SourceRules = "rules"
	SourceAI    = "ai"
)

// Merged fields tracked in Result.Provenance.
const (
	FieldCorrespondentID   = "correspondent_id"
	FieldCorrespondentName = "correspondent_name"
	FieldDocumentTypeID    = "document_type_id"
	FieldDocumentTypeName  = "document_type_name"
	FieldDocumentDate      = "document_date"
	FieldAmount            = "amount"
	FieldCurrency          = "currency"
)

// EventClassified is the webhook event emitted when a result is applied.
const EventClassified = "document.classified"

// Result is a classification produced by one source or by merging two.
// DocumentDate is formatted as YYYY-MM-DD.
type Result struct {
	Method            Method            `json:"method"`
	CorrespondentID   *uuid.UUID        `json:"correspondent_id"`
	CorrespondentName *string           `json:"correspondent_name"`
	DocumentTypeID    *uuid.UUID        `json:"document_type_id"`
	DocumentTypeName  *string           `json:"document_type_name"`
	TagIDs            []uuid.UUID       `json:"tag_ids"`
	TagNames          []string          `json:"tag_names"`
	DocumentDate      *string           `json:"document_date"`
	Amount            *float64          `json:"amount"`
	Currency          *string           `json:"currency"`
	TitleSuggestion   *string           `json:"title_suggestion,omitempty"`
	Confidence        float64           `json:"confidence"`
	Provenance        map[string]string `json:"provenance,omitempty"`
}

// Assignment converts the result into the document fields it sets.
func (r *Result) Assignment() (documents.Assignment, error) {
	a := documents.Assignment{
		CorrespondentID: nonNilID(r.CorrespondentID),
		DocumentTypeID:  nonNilID(r.DocumentTypeID),
		TagIDs:          r.TagIDs,
	}

	if !emptyString(r.DocumentDate) {
		d, err := time.Parse(time.DateOnly, *r.DocumentDate)
		if err != nil {
			return a, fmt.Errorf("%w: document_date %q", ErrInvalidResult, *r.DocumentDate)
		}
		a.DocumentDate = &d
	}

	if !emptyAmount(r.Amount) {
		a.Amount = r.Amount
	}
	if !emptyString(r.Currency) {
		a.Currency = r.Currency
	}

	return a, nil
}

func (r *Result) clone() *Result {
	c := *r
	c.TagIDs = slices.Clone(r.TagIDs)
	c.TagNames = slices.Clone(r.TagNames)
	if r.Provenance != nil {
		c.Provenance = make(map[string]string, len(r.Provenance))
		for k, v := range r.Provenance {
			c.Provenance[k] = v
		}
	}
	return &c
}

// Envelope reports every stage of a classification request.
type Envelope struct {
	DocumentID   uuid.UUID `json:"document_id"`
	MethodUsed   Method    `json:"method_used"`
	RulesResult  *Result   `json:"rules_result"`
	AIResult     *Result   `json:"ai_result"`
	Final        *Result   `json:"final"`
	Confidence   float64   `json:"confidence"`
	ShouldReview bool      `json:"should_review"`
	AutoApplied  bool      `json:"auto_applied"`
	AIError      string    `json:"ai_error,omitempty"`
}

// Settings describes the active classification configuration.
type Settings struct {
	Method      Method  `json:"method"`
	AutoApply   bool    `json:"auto_apply"`
	Threshold   float64 `json:"confidence_threshold"`
	AIAvailable bool    `json:"ai_available"`
}

// ShouldReview reports whether confidence falls strictly below threshold.
func ShouldReview(confidence, threshold float64) bool {
	return confidence < threshold
}

func emptyString(s *string) bool { return s == nil || *s == "" }

func emptyID(id *uuid.UUID) bool { return id == nil || *id == uuid.Nil }

func emptyAmount(a *float64) bool { return a == nil || *a == 0 }

func nonNilID(id *uuid.UUID) *uuid.UUID {
	if emptyID(id) {
		return nil
	}
	return id
}
