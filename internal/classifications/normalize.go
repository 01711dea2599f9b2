package classifications

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/ai"
	"github.com/JaimeStill/archivist/internal/matching"
)

// normalize converts an AI suggestion into a Result, resolving suggested
// names against existing entities.
func normalize(s *ai.Suggestion, catalog *matching.Catalog, defaultConfidence float64) *Result {
	r := &Result{
		Method:          MethodAI,
		TagIDs:          []uuid.UUID{},
		TagNames:        []string{},
		TitleSuggestion: trimmed(s.TitleSuggestion),
		Confidence:      defaultConfidence,
	}

	if s.Confidence != nil {
		r.Confidence = min(max(*s.Confidence, 0), 1)
	}

	if name := trimmed(s.Correspondent); name != nil {
		r.CorrespondentName = name
		if e, ok := matching.Resolve(catalog.Correspondents, *name); ok {
			r.CorrespondentID = &e.ID
		}
	}

	if name := trimmed(s.DocumentType); name != nil {
		r.DocumentTypeName = name
		if e, ok := matching.Resolve(catalog.DocumentTypes, *name); ok {
			r.DocumentTypeID = &e.ID
		}
	}

	seen := make(map[uuid.UUID]struct{})
	for _, tag := range s.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		r.TagNames = append(r.TagNames, tag)

		e, ok := matching.Resolve(catalog.Tags, tag)
		if !ok {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		r.TagIDs = append(r.TagIDs, e.ID)
	}

	if d := trimmed(s.DocumentDate); d != nil {
		if _, err := time.Parse(time.DateOnly, *d); err == nil {
			r.DocumentDate = d
		}
	}

	if s.Amount != nil && *s.Amount > 0 {
		v := *s.Amount
		r.Amount = &v
	}

	if c := trimmed(s.Currency); c != nil {
		upper := strings.ToUpper(*c)
		r.Currency = &upper
	}

	return r
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

func names(entities []matching.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}
