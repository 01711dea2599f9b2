package classifications

import "github.com/google/uuid"

// Merge combines a rules result with an AI result. AI values fill only the
// fields rules left empty; tags are unioned; confidence is the mean of both.
// Neither input is modified.
func Merge(rules, ai *Result) *Result {
	m := rules.clone()
	m.Method = MethodAutoMerged
	m.Provenance = make(map[string]string)

	mergeID(m, FieldCorrespondentID, &m.CorrespondentID, rules.CorrespondentID, ai.CorrespondentID)
	mergeString(m, FieldCorrespondentName, &m.CorrespondentName, rules.CorrespondentName, ai.CorrespondentName)
	mergeID(m, FieldDocumentTypeID, &m.DocumentTypeID, rules.DocumentTypeID, ai.DocumentTypeID)
	mergeString(m, FieldDocumentTypeName, &m.DocumentTypeName, rules.DocumentTypeName, ai.DocumentTypeName)
	mergeString(m, FieldDocumentDate, &m.DocumentDate, rules.DocumentDate, ai.DocumentDate)
	mergeString(m, FieldCurrency, &m.Currency, rules.Currency, ai.Currency)

	switch {
	case !emptyAmount(rules.Amount):
		m.Provenance[FieldAmount] = SourceRules
	case !emptyAmount(ai.Amount):
		v := *ai.Amount
		m.Amount = &v
		m.Provenance[FieldAmount] = SourceAI
	}

	m.TagIDs = union(rules.TagIDs, ai.TagIDs)
	m.TagNames = union(rules.TagNames, ai.TagNames)

	if m.TitleSuggestion == nil && ai.TitleSuggestion != nil {
		m.TitleSuggestion = ai.TitleSuggestion
	}

	m.Confidence = (rules.Confidence + ai.Confidence) / 2
	return m
}

func mergeID(m *Result, field string, dst **uuid.UUID, rules, ai *uuid.UUID) {
	switch {
	case !emptyID(rules):
		m.Provenance[field] = SourceRules
	case !emptyID(ai):
		v := *ai
		*dst = &v
		m.Provenance[field] = SourceAI
	}
}

func mergeString(m *Result, field string, dst **string, rules, ai *string) {
	switch {
	case !emptyString(rules):
		m.Provenance[field] = SourceRules
	case !emptyString(ai):
		v := *ai
		*dst = &v
		m.Provenance[field] = SourceAI
	}
}

func union[T comparable](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	seen := make(map[T]struct{}, len(a)+len(b))
	for _, list := range [][]T{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
