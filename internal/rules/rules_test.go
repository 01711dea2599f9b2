package rules_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/classifications"
	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/matching"
	"github.com/JaimeStill/archivist/internal/rules"
)

type fakeSource struct {
	entities map[matching.Kind][]matching.Entity
	fail     map[matching.Kind]error
}

func (f *fakeSource) Rules(_ context.Context, kind matching.Kind) ([]matching.Entity, error) {
	if err := f.fail[kind]; err != nil {
		return nil, err
	}
	return f.entities[kind], nil
}

func (f *fakeSource) All(ctx context.Context, kind matching.Kind) ([]matching.Entity, error) {
	return f.Rules(ctx, kind)
}

func entity(kind matching.Kind, name, pattern string, algo matching.Algorithm) matching.Entity {
	return matching.Entity{ID: uuid.New(), Kind: kind, Name: name, Pattern: pattern, Algorithm: algo}
}

func newEngine(src *fakeSource) *rules.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rules.New(matching.New(src, logger), logger)
}

func TestClassify(t *testing.T) {
	acme := entity(matching.KindCorrespondent, "ACME", "acme", matching.Any)
	globex := entity(matching.KindCorrespondent, "Globex", "invoice", matching.Any)
	invoice := entity(matching.KindDocumentType, "Invoice", `"facture" "invoice"`, matching.Any)
	finance := entity(matching.KindTag, "Finance", "total", matching.Exact)
	urgent := entity(matching.KindTag, "Urgent", `due\s+now`, matching.Regex)
	unused := entity(matching.KindTag, "Travel", "boarding pass", matching.All)

	src := &fakeSource{entities: map[matching.Kind][]matching.Entity{
		matching.KindCorrespondent: {acme, globex},
		matching.KindDocumentType:  {invoice},
		matching.KindTag:           {finance, urgent, unused},
	}}

	doc := &documents.Document{
		ID:               uuid.New(),
		Title:            "ACME invoice",
		Content:          "Total due now: EUR 42,00. Date 14/03/2026.",
		OriginalFilename: "acme.pdf",
	}

	r, err := newEngine(src).Classify(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}

	if r.Method != classifications.MethodRules {
		t.Errorf("Method = %q", r.Method)
	}
	if r.CorrespondentID == nil || *r.CorrespondentID != acme.ID || *r.CorrespondentName != "ACME" {
		t.Errorf("correspondent = %v, want first match ACME", r.CorrespondentName)
	}
	if r.DocumentTypeID == nil || *r.DocumentTypeID != invoice.ID {
		t.Error("document type not matched")
	}
	if !slices.Equal(r.TagIDs, []uuid.UUID{finance.ID, urgent.ID}) {
		t.Errorf("tags = %v", r.TagNames)
	}
	if r.DocumentDate == nil || *r.DocumentDate != "2026-03-14" {
		t.Errorf("date = %v", r.DocumentDate)
	}
	if r.Amount == nil || *r.Amount != 42 || *r.Currency != "EUR" {
		t.Errorf("amount = %v %v", r.Amount, r.Currency)
	}
	if r.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", r.Confidence)
	}
}

func TestClassifyConfidence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"nothing", "lorem ipsum", 0},
		{"date only", "14/03/2026", 0.2},
		{"date and amount", "14/03/2026 CHF 10.00", 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := newEngine(&fakeSource{}).Classify(context.Background(), &documents.Document{Content: tt.content})
			if err != nil {
				t.Fatal(err)
			}
			if r.Confidence != tt.want {
				t.Errorf("Confidence = %v, want %v", r.Confidence, tt.want)
			}
		})
	}
}

func TestClassifyIsolatesFailingKind(t *testing.T) {
	tag := entity(matching.KindTag, "Finance", "total", matching.Any)
	src := &fakeSource{
		entities: map[matching.Kind][]matching.Entity{matching.KindTag: {tag}},
		fail:     map[matching.Kind]error{matching.KindCorrespondent: errors.New("relation does not exist")},
	}

	r, err := newEngine(src).Classify(context.Background(), &documents.Document{Content: "total"})
	if err != nil {
		t.Fatal(err)
	}
	if r.CorrespondentID != nil {
		t.Error("correspondent matched despite failing source")
	}
	if !slices.Equal(r.TagIDs, []uuid.UUID{tag.ID}) {
		t.Errorf("tags = %v", r.TagIDs)
	}
}
