package classifications_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/ai"
	"github.com/JaimeStill/archivist/internal/classifications"
	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/documents/docstest"
	"github.com/JaimeStill/archivist/internal/matching"
)

type fakeRules struct {
	result *classifications.Result
	err    error
}

func (f *fakeRules) Classify(context.Context, *documents.Document) (*classifications.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAI struct {
	available  bool
	suggestion *ai.Suggestion
	err        error
	calls      int
	req        ai.Request
}

func (f *fakeAI) Available() bool { return f.available }

func (f *fakeAI) Classify(_ context.Context, req ai.Request) (*ai.Suggestion, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestion, nil
}

type fakeCatalog struct{ catalog matching.Catalog }

func (f *fakeCatalog) Catalog(context.Context) *matching.Catalog { return &f.catalog }

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Trigger(_ context.Context, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

var docID = uuid.MustParse("40000000-0000-0000-0000-000000000001")

func testCatalog() *fakeCatalog {
	return &fakeCatalog{catalog: matching.Catalog{
		Correspondents: []matching.Entity{
			{ID: *globex, Kind: matching.KindCorrespondent, Name: "Globex"},
			{ID: *acme, Kind: matching.KindCorrespondent, Name: "ACME Corp"},
		},
		DocumentTypes: []matching.Entity{
			{ID: *invoice, Kind: matching.KindDocumentType, Name: "Invoice"},
		},
		Tags: []matching.Entity{
			{ID: tagA, Kind: matching.KindTag, Name: "Finance"},
			{ID: tagC, Kind: matching.KindTag, Name: "Urgent"},
		},
	}}
}

func rulesResult(confidence float64) *classifications.Result {
	return &classifications.Result{
		Method:            classifications.MethodRules,
		CorrespondentID:   acme,
		CorrespondentName: str("ACME Corp"),
		TagIDs:            []uuid.UUID{tagB},
		TagNames:          []string{"b"},
		Confidence:        confidence,
	}
}

type fixture struct {
	store    *docstest.Store
	rules    *fakeRules
	ai       *fakeAI
	notifier *recorder
	sys      classifications.System
}

func newFixture(cfg classifications.Config, rules *fakeRules, model *fakeAI) *fixture {
	f := &fixture{
		store: docstest.New(documents.Document{
			ID:      docID,
			Title:   "Invoice 42",
			Content: "ACME Corp invoice",
			TagIDs:  []uuid.UUID{},
		}),
		rules:    rules,
		ai:       model,
		notifier: &recorder{},
	}

	f.sys = classifications.New(classifications.Deps{
		Documents: f.store,
		Rules:     rules,
		AI:        model,
		Catalog:   testCatalog(),
		Notifier:  f.notifier,
	}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return f
}

func TestClassifyRulesMethod(t *testing.T) {
	model := &fakeAI{available: true, suggestion: &ai.Suggestion{}}
	f := newFixture(
		classifications.Config{Method: classifications.MethodRules, Threshold: 0.8},
		&fakeRules{result: rulesResult(0.4)},
		model,
	)

	env, err := f.sys.Classify(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}

	if env.MethodUsed != classifications.MethodRules || env.Final != env.RulesResult {
		t.Errorf("envelope = %+v", env)
	}
	if env.Confidence != 0.4 || !env.ShouldReview {
		t.Errorf("confidence = %v review = %v", env.Confidence, env.ShouldReview)
	}
	if model.calls != 0 {
		t.Error("ai consulted under rules method")
	}
}

func TestClassifyAIMethod(t *testing.T) {
	t.Run("success normalizes suggestion", func(t *testing.T) {
		model := &fakeAI{available: true, suggestion: &ai.Suggestion{
			Correspondent: str("acme"),
			DocumentType:  str("invoice"),
			Tags:          []string{"finance", "FINANCE", "unknown"},
			DocumentDate:  str("2026-02-01"),
			Amount:        num(15),
			Currency:      str("eur"),
		}}
		f := newFixture(
			classifications.Config{Method: classifications.MethodAI, Threshold: 0.8},
			&fakeRules{result: rulesResult(0.2)},
			model,
		)

		env, err := f.sys.Classify(context.Background(), docID)
		if err != nil {
			t.Fatal(err)
		}

		if env.MethodUsed != classifications.MethodAI || env.RulesResult != nil {
			t.Fatalf("envelope = %+v", env)
		}

		r := env.AIResult
		if r.CorrespondentID == nil || *r.CorrespondentID != *acme {
			t.Errorf("correspondent = %v, want resolved ACME Corp", r.CorrespondentID)
		}
		if r.DocumentTypeID == nil || *r.DocumentTypeID != *invoice {
			t.Errorf("document type = %v", r.DocumentTypeID)
		}
		if !slices.Equal(r.TagIDs, []uuid.UUID{tagA}) {
			t.Errorf("tag ids = %v, want deduplicated [Finance]", r.TagIDs)
		}
		if *r.Currency != "EUR" {
			t.Errorf("currency = %q", *r.Currency)
		}
		if env.Confidence != 0.7 {
			t.Errorf("confidence = %v, want default 0.7", env.Confidence)
		}
		if !slices.Equal(model.req.Correspondents, []string{"Globex", "ACME Corp"}) {
			t.Errorf("prompt correspondents = %v", model.req.Correspondents)
		}
	})

	tests := []struct {
		name  string
		model *fakeAI
	}{
		{"provider failure", &fakeAI{available: true, err: ai.ErrProvider}},
		{"unavailable", &fakeAI{}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" falls back to rules", func(t *testing.T) {
			rules := rulesResult(0.4)
			f := newFixture(
				classifications.Config{Method: classifications.MethodAI, Threshold: 0.8},
				&fakeRules{result: rules},
				tt.model,
			)

			env, err := f.sys.Classify(context.Background(), docID)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			if env.MethodUsed != classifications.MethodRulesFallback {
				t.Errorf("MethodUsed = %q", env.MethodUsed)
			}
			if env.Final.Method != classifications.MethodRulesFallback || env.Confidence != 0.4 {
				t.Errorf("final = %+v", env.Final)
			}
			if rules.Method != classifications.MethodRules {
				t.Error("rules result mutated")
			}
			if env.AIError == "" {
				t.Error("ai error not reported")
			}
		})
	}
}

func TestClassifyAutoMethod(t *testing.T) {
	t.Run("merged", func(t *testing.T) {
		model := &fakeAI{available: true, suggestion: &ai.Suggestion{
			Correspondent: str("Globex"),
			DocumentType:  str("Invoice"),
			Tags:          []string{"Urgent"},
			Confidence:    num(0.75),
		}}
		f := newFixture(
			classifications.Config{Threshold: 0.8},
			&fakeRules{result: rulesResult(0.25)},
			model,
		)

		env, err := f.sys.Classify(context.Background(), docID)
		if err != nil {
			t.Fatal(err)
		}

		if env.MethodUsed != classifications.MethodAutoMerged {
			t.Fatalf("MethodUsed = %q", env.MethodUsed)
		}
		if *env.Final.CorrespondentID != *acme {
			t.Error("rule correspondent overwritten by ai")
		}
		if env.Final.DocumentTypeID == nil || *env.Final.DocumentTypeID != *invoice {
			t.Error("document type not filled from ai")
		}
		if !slices.Equal(env.Final.TagIDs, []uuid.UUID{tagB, tagC}) {
			t.Errorf("tags = %v", env.Final.TagIDs)
		}
		if env.Confidence != 0.5 || !env.ShouldReview {
			t.Errorf("confidence = %v review = %v", env.Confidence, env.ShouldReview)
		}
	})

	tests := []struct {
		name      string
		model     *fakeAI
		wantCalls int
	}{
		{"ai unavailable", &fakeAI{}, 0},
		{"ai failure", &fakeAI{available: true, err: ai.ErrInvalidResponse}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name+" keeps rules", func(t *testing.T) {
			rules := rulesResult(0.4)
			f := newFixture(classifications.Config{Threshold: 0.8}, &fakeRules{result: rules}, tt.model)

			env, err := f.sys.Classify(context.Background(), docID)
			if err != nil {
				t.Fatal(err)
			}

			if env.MethodUsed != classifications.MethodAuto || env.Final != rules {
				t.Errorf("envelope = %+v", env)
			}
			if tt.model.calls != tt.wantCalls {
				t.Errorf("ai calls = %d, want %d", tt.model.calls, tt.wantCalls)
			}
		})
	}
}

func TestClassifyAutoApply(t *testing.T) {
	tests := []struct {
		name        string
		confidence  float64
		autoApply   bool
		wantApplied bool
	}{
		{"at threshold", 0.8, true, true},
		{"below threshold", 0.6, true, false},
		{"disabled", 1, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(
				classifications.Config{Method: classifications.MethodRules, AutoApply: tt.autoApply, Threshold: 0.8},
				&fakeRules{result: rulesResult(tt.confidence)},
				&fakeAI{},
			)

			env, err := f.sys.Classify(context.Background(), docID)
			if err != nil {
				t.Fatal(err)
			}

			if env.AutoApplied != tt.wantApplied {
				t.Errorf("AutoApplied = %v, want %v", env.AutoApplied, tt.wantApplied)
			}

			doc, _ := f.store.Get(docID)
			applied := doc.CorrespondentID != nil && *doc.CorrespondentID == *acme
			if applied != tt.wantApplied {
				t.Errorf("document updated = %v, want %v", applied, tt.wantApplied)
			}

			notified := slices.Contains(f.notifier.events, classifications.EventClassified)
			if notified != tt.wantApplied {
				t.Errorf("notified = %v, want %v", notified, tt.wantApplied)
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	t.Run("missing document", func(t *testing.T) {
		f := newFixture(classifications.Config{}, &fakeRules{result: rulesResult(1)}, &fakeAI{})
		_, err := f.sys.Classify(context.Background(), uuid.New())
		if !errors.Is(err, documents.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("rules failure", func(t *testing.T) {
		boom := errors.New("boom")
		f := newFixture(classifications.Config{}, &fakeRules{err: boom}, &fakeAI{})
		_, err := f.sys.Classify(context.Background(), docID)
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want wrapped boom", err)
		}
	})
}

func TestApply(t *testing.T) {
	f := newFixture(classifications.Config{}, &fakeRules{}, &fakeAI{})

	err := f.sys.Apply(context.Background(), docID, &classifications.Result{
		Method:         classifications.MethodAI,
		DocumentTypeID: invoice,
		TagIDs:         []uuid.UUID{tagA, tagA},
		DocumentDate:   str("2026-04-01"),
		Amount:         num(20),
	})
	if err != nil {
		t.Fatal(err)
	}

	doc, _ := f.store.Get(docID)
	if doc.DocumentTypeID == nil || *doc.DocumentTypeID != *invoice {
		t.Error("document type not applied")
	}
	if !slices.Equal(doc.TagIDs, []uuid.UUID{tagA}) {
		t.Errorf("tags = %v", doc.TagIDs)
	}
	if doc.Amount == nil || *doc.Amount != 20 {
		t.Error("amount not applied")
	}

	err = f.sys.Apply(context.Background(), docID, &classifications.Result{DocumentDate: str("April 1")})
	if !errors.Is(err, classifications.ErrInvalidResult) {
		t.Errorf("error = %v, want ErrInvalidResult", err)
	}
}

func TestSettings(t *testing.T) {
	f := newFixture(
		classifications.Config{Method: "bogus", Threshold: 2},
		&fakeRules{},
		&fakeAI{available: true},
	)

	s := f.sys.Settings()
	if s.Method != classifications.MethodAuto || s.Threshold != 0.8 || !s.AIAvailable {
		t.Errorf("settings = %+v", s)
	}
}
