package classifications_test

import (
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/classifications"
)

func str(s string) *string { return &s }

func num(f float64) *float64 { return &f }

func id(s string) *uuid.UUID {
	v := uuid.MustParse(s)
	return &v
}

var (
	acme    = id("10000000-0000-0000-0000-000000000001")
	globex  = id("10000000-0000-0000-0000-000000000002")
	invoice = id("20000000-0000-0000-0000-000000000001")
	tagA    = uuid.MustParse("30000000-0000-0000-0000-000000000001")
	tagB    = uuid.MustParse("30000000-0000-0000-0000-000000000002")
	tagC    = uuid.MustParse("30000000-0000-0000-0000-000000000003")
)

func TestMergeFillsOnlyEmptyFields(t *testing.T) {
	rules := &classifications.Result{
		Method:            classifications.MethodRules,
		CorrespondentID:   acme,
		CorrespondentName: str("ACME"),
		TagIDs:            []uuid.UUID{tagA, tagB},
		TagNames:          []string{"a", "b"},
		Amount:            num(12.5),
		Confidence:        0.5,
	}
	ai := &classifications.Result{
		Method:            classifications.MethodAI,
		CorrespondentID:   globex,
		CorrespondentName: str("Globex"),
		DocumentTypeID:    invoice,
		DocumentTypeName:  str("Invoice"),
		TagIDs:            []uuid.UUID{tagB, tagC},
		TagNames:          []string{"b", "c"},
		DocumentDate:      str("2026-03-14"),
		Amount:            num(99),
		Currency:          str("EUR"),
		Confidence:        1,
	}

	m := classifications.Merge(rules, ai)

	if m.Method != classifications.MethodAutoMerged {
		t.Errorf("Method = %q", m.Method)
	}
	if *m.CorrespondentID != *acme || *m.CorrespondentName != "ACME" {
		t.Error("rule correspondent was overwritten")
	}
	if *m.Amount != 12.5 {
		t.Errorf("rule amount overwritten: %v", *m.Amount)
	}
	if m.DocumentTypeID == nil || *m.DocumentTypeID != *invoice {
		t.Error("empty document type not filled from ai")
	}
	if m.DocumentDate == nil || *m.DocumentDate != "2026-03-14" {
		t.Error("empty date not filled from ai")
	}
	if m.Currency == nil || *m.Currency != "EUR" {
		t.Error("empty currency not filled from ai")
	}

	if want := []uuid.UUID{tagA, tagB, tagC}; !slices.Equal(m.TagIDs, want) {
		t.Errorf("TagIDs = %v, want %v", m.TagIDs, want)
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(m.TagNames, want) {
		t.Errorf("TagNames = %v, want %v", m.TagNames, want)
	}

	provenance := map[string]string{
		classifications.FieldCorrespondentID:   classifications.SourceRules,
		classifications.FieldCorrespondentName: classifications.SourceRules,
		classifications.FieldAmount:            classifications.SourceRules,
		classifications.FieldDocumentTypeID:    classifications.SourceAI,
		classifications.FieldDocumentTypeName:  classifications.SourceAI,
		classifications.FieldDocumentDate:      classifications.SourceAI,
		classifications.FieldCurrency:          classifications.SourceAI,
	}
	for field, want := range provenance {
		if got := m.Provenance[field]; got != want {
			t.Errorf("provenance[%s] = %q, want %q", field, got, want)
		}
	}

	if m.Confidence != 0.75 {
		t.Errorf("Confidence = %v, want 0.75", m.Confidence)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	rules := &classifications.Result{TagIDs: []uuid.UUID{tagA}, Confidence: 0.2}
	ai := &classifications.Result{CorrespondentID: acme, TagIDs: []uuid.UUID{tagB}, Confidence: 0.4}

	classifications.Merge(rules, ai)

	if rules.CorrespondentID != nil || len(rules.TagIDs) != 1 || rules.Provenance != nil {
		t.Errorf("rules mutated: %+v", rules)
	}
}

func TestMergeConfidenceIsMean(t *testing.T) {
	tests := []struct {
		rules, ai, want float64
	}{
		{0, 0.7, 0.35},
		{0.25, 0.75, 0.5},
		{1, 1, 1},
	}

	for _, tt := range tests {
		m := classifications.Merge(
			&classifications.Result{Confidence: tt.rules},
			&classifications.Result{Confidence: tt.ai},
		)
		if m.Confidence != tt.want {
			t.Errorf("Merge(%v, %v).Confidence = %v, want %v", tt.rules, tt.ai, m.Confidence, tt.want)
		}
	}
}

func TestShouldReview(t *testing.T) {
	tests := []struct {
		confidence, threshold float64
		want                  bool
	}{
		{0.6, 0.8, true},
		{0.8, 0.8, false},
		{0.81, 0.8, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		if got := classifications.ShouldReview(tt.confidence, tt.threshold); got != tt.want {
			t.Errorf("ShouldReview(%v, %v) = %v, want %v", tt.confidence, tt.threshold, got, tt.want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := map[string]classifications.Method{
		"rules": classifications.MethodRules,
		"ai":    classifications.MethodAI,
		"auto":  classifications.MethodAuto,
		"":      classifications.MethodAuto,
		"ml":    classifications.MethodAuto,
	}
	for in, want := range tests {
		if got := classifications.ParseMethod(in); got != want {
			t.Errorf("ParseMethod(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResultAssignment(t *testing.T) {
	r := classifications.Result{
		CorrespondentID: acme,
		DocumentTypeID:  &uuid.Nil,
		DocumentDate:    str("2026-01-31"),
		Amount:          num(0),
		Currency:        str(""),
	}

	a, err := r.Assignment()
	if err != nil {
		t.Fatal(err)
	}
	if a.CorrespondentID == nil || a.DocumentTypeID != nil || a.Amount != nil || a.Currency != nil {
		t.Errorf("assignment = %+v", a)
	}
	if a.DocumentDate == nil || a.DocumentDate.Day() != 31 {
		t.Errorf("date = %v", a.DocumentDate)
	}

	bad := classifications.Result{DocumentDate: str("31/01/2026")}
	if _, err := bad.Assignment(); err == nil {
		t.Error("expected error for malformed date")
	}
}
