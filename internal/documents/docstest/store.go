// Package docstest provides an in-memory documents.System for tests.
package docstest

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/pkg/pagination"
)

// Store is a concurrency-safe in-memory document store.
// Errors in Fail are returned by the operation of the same name.
type Store struct {
	mu           sync.Mutex
	docs         map[uuid.UUID]*documents.Document
	customFields map[uuid.UUID]map[string]time.Time
	Fail         map[string]error
	Calls        []string
}

// New creates a Store seeded with docs.
func New(docs ...documents.Document) *Store {
	s := &Store{
		docs:         make(map[uuid.UUID]*documents.Document),
		customFields: make(map[uuid.UUID]map[string]time.Time),
		Fail:         make(map[string]error),
	}
	for _, d := range docs {
		s.Put(d)
	}
	return s
}

// Put inserts or replaces a document.
func (s *Store) Put(d documents.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.TagIDs == nil {
		d.TagIDs = []uuid.UUID{}
	}
	s.docs[d.ID] = &d
}

// SetCustomDate records a date-valued custom field for a document.
func (s *Store) SetCustomDate(id uuid.UUID, name string, date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customFields[id] == nil {
		s.customFields[id] = make(map[string]time.Time)
	}
	s.customFields[id][name] = date
}

// Get returns a copy of the stored document.
func (s *Store) Get(id uuid.UUID) (documents.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return documents.Document{}, false
	}
	return clone(d), true
}

func (s *Store) Handler(events documents.Events) *documents.Handler {
	return documents.NewHandler(
		s, events,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func (s *Store) List(
	_ context.Context,
	page pagination.PageRequest,
	filters documents.Filters,
) (*pagination.PageResult[documents.Document], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("List"); err != nil {
		return nil, err
	}

	page.Normalize(pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})

	all := make([]documents.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if filters.Title != nil && !strings.Contains(strings.ToLower(d.Title), strings.ToLower(*filters.Title)) {
			continue
		}
		if filters.CorrespondentID != nil && (d.CorrespondentID == nil || *d.CorrespondentID != *filters.CorrespondentID) {
			continue
		}
		all = append(all, clone(d))
	}
	slices.SortFunc(all, func(a, b documents.Document) int { return b.CreatedAt.Compare(a.CreatedAt) })

	start := min(page.Offset(), len(all))
	end := min(start+page.PageSize, len(all))
	result := pagination.NewPageResult(all[start:end], len(all), page.Page, page.PageSize)
	return &result, nil
}

func (s *Store) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Find"); err != nil {
		return nil, err
	}
	d, ok := s.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	c := clone(d)
	return &c, nil
}

func (s *Store) AddTag(_ context.Context, id, tagID uuid.UUID) error {
	return s.mutate("AddTag", id, func(d *documents.Document) {
		if !d.HasTag(tagID) {
			d.TagIDs = append(d.TagIDs, tagID)
		}
	})
}

func (s *Store) SetCorrespondent(_ context.Context, id, correspondentID uuid.UUID) error {
	return s.mutate("SetCorrespondent", id, func(d *documents.Document) {
		d.CorrespondentID = &correspondentID
	})
}

func (s *Store) SetDocumentType(_ context.Context, id, documentTypeID uuid.UUID) error {
	return s.mutate("SetDocumentType", id, func(d *documents.Document) {
		d.DocumentTypeID = &documentTypeID
	})
}

func (s *Store) SetStoragePath(_ context.Context, id, storagePathID uuid.UUID) error {
	return s.mutate("SetStoragePath", id, func(d *documents.Document) {
		d.StoragePathID = &storagePathID
	})
}

func (s *Store) ApplyClassification(_ context.Context, id uuid.UUID, a documents.Assignment) error {
	return s.mutate("ApplyClassification", id, func(d *documents.Document) {
		if a.CorrespondentID != nil {
			d.CorrespondentID = a.CorrespondentID
		}
		if a.DocumentTypeID != nil {
			d.DocumentTypeID = a.DocumentTypeID
		}
		if a.DocumentDate != nil {
			d.DocumentDate = a.DocumentDate
		}
		if a.Amount != nil {
			d.Amount = a.Amount
		}
		if a.Currency != nil {
			d.Currency = a.Currency
		}
		for _, tag := range a.TagIDs {
			if !d.HasTag(tag) {
				d.TagIDs = append(d.TagIDs, tag)
			}
		}
	})
}

func (s *Store) FindIDsByDate(
	_ context.Context,
	field documents.DateField,
	customField string,
	date time.Time,
) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("FindIDsByDate"); err != nil {
		return nil, err
	}

	day := date.Format(time.DateOnly)
	ids := make([]uuid.UUID, 0)

	for id, d := range s.docs {
		var value time.Time
		switch field {
		case documents.DateModified:
			value = d.UpdatedAt.In(date.Location())
		case documents.DateCustomField:
			v, ok := s.customFields[id][customField]
			if !ok {
				continue
			}
			value = v
		default:
			value = d.CreatedAt.In(date.Location())
		}
		if value.Format(time.DateOnly) == day {
			ids = append(ids, id)
		}
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return ids, nil
}

func (s *Store) mutate(op string, id uuid.UUID, fn func(*documents.Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, op)
	if err := s.fail(op); err != nil {
		return err
	}
	d, ok := s.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	fn(d)
	d.UpdatedAt = time.Now()
	return nil
}

func (s *Store) fail(op string) error {
	return s.Fail[op]
}

func clone(d *documents.Document) documents.Document {
	c := *d
	c.TagIDs = slices.Clone(d.TagIDs)
	return c
}
