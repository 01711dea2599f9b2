package workflows

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/matching"
)

// Condition types stored on triggers.
const (
	ConditionAlways           = "always"
	ConditionHasTag           = "if_has_tag"
	ConditionHasCorrespondent = "if_has_correspondent"
	ConditionHasType          = "if_has_type"
	ConditionMatch            = "if_match"
)

// Condition is a trigger predicate over a document. The set of implementations
// is closed: Always, HasTag, HasCorrespondent, HasType, MatchesText, and
// UnknownCondition.
type Condition interface {
	condition()
}

// Always holds for every document.
type Always struct{}

// HasTag holds when the document carries TagID.
type HasTag struct {
	TagID uuid.UUID
}

// HasCorrespondent holds when the document is assigned CorrespondentID.
type HasCorrespondent struct {
	CorrespondentID uuid.UUID
}

// HasType holds when the document is assigned DocumentTypeID.
type HasType struct {
	DocumentTypeID uuid.UUID
}

// MatchesText holds when Pattern occurs in the document title or content.
type MatchesText struct {
	Pattern string
}

// UnknownCondition is a stored condition that could not be parsed. It never holds.
type UnknownCondition struct {
	Type  string
	Value string
	Err   error
}

func (Always) condition()           {}
func (HasTag) condition()           {}
func (HasCorrespondent) condition() {}
func (HasType) condition()          {}
func (MatchesText) condition()      {}
func (UnknownCondition) condition() {}

// ParseCondition builds a Condition from its stored type and value.
// An empty type is treated as always.
func ParseCondition(conditionType, value string) Condition {
	value = strings.TrimSpace(value)

	switch strings.TrimSpace(conditionType) {
	case "", ConditionAlways:
		return Always{}
	case ConditionHasTag:
		id, err := uuid.Parse(value)
		if err != nil {
			return unknownCondition(conditionType, value, err)
		}
		return HasTag{TagID: id}
	case ConditionHasCorrespondent:
		id, err := uuid.Parse(value)
		if err != nil {
			return unknownCondition(conditionType, value, err)
		}
		return HasCorrespondent{CorrespondentID: id}
	case ConditionHasType:
		id, err := uuid.Parse(value)
		if err != nil {
			return unknownCondition(conditionType, value, err)
		}
		return HasType{DocumentTypeID: id}
	case ConditionMatch:
		return MatchesText{Pattern: value}
	default:
		return unknownCondition(conditionType, value, fmt.Errorf("unknown condition type %q", conditionType))
	}
}

func unknownCondition(conditionType, value string, err error) UnknownCondition {
	return UnknownCondition{Type: conditionType, Value: value, Err: err}
}

// Evaluate reports whether c holds for doc. Unknown conditions fail closed.
func Evaluate(c Condition, doc *documents.Document) bool {
	if doc == nil {
		return false
	}

	switch c := c.(type) {
	case Always:
		return true
	case HasTag:
		return doc.HasTag(c.TagID)
	case HasCorrespondent:
		return doc.CorrespondentID != nil && *doc.CorrespondentID == c.CorrespondentID
	case HasType:
		return doc.DocumentTypeID != nil && *doc.DocumentTypeID == c.DocumentTypeID
	case MatchesText:
		return matching.Match(doc.Title+" "+doc.Content, matching.Exact, c.Pattern)
	case UnknownCondition:
		return false
	default:
		return false
	}
}
