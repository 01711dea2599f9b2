package matching

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/archivist/pkg/query"
	"github.com/JaimeStill/archivist/pkg/repository"
)

var tables = map[Kind]string{
	KindTag:           "tags",
	KindCorrespondent: "correspondents",
	KindDocumentType:  "document_types",
	KindStoragePath:   "storage_paths",
}

var defaultSort = query.SortField{Field: "Name"}

type source struct {
	db *sql.DB
}

// NewSource creates a PostgreSQL-backed Source.
func NewSource(db *sql.DB) Source {
	return &source{db: db}
}

func (s *source) Rules(ctx context.Context, kind Kind) ([]Entity, error) {
	p, err := projectionFor(kind)
	if err != nil {
		return nil, err
	}

	q, args := query.NewBuilder(p, defaultSort).
		WhereNotEquals("Pattern", "").
		WhereNotEquals("Algorithm", string(None)).
		Build()

	entities, err := repository.QueryMany(ctx, s.db, q, args, scanEntity(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s rules: %w", kind, err)
	}
	return entities, nil
}

func (s *source) All(ctx context.Context, kind Kind) ([]Entity, error) {
	p, err := projectionFor(kind)
	if err != nil {
		return nil, err
	}

	q, args := query.NewBuilder(p, defaultSort).Build()

	entities, err := repository.QueryMany(ctx, s.db, q, args, scanEntity(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	return entities, nil
}

func projectionFor(kind Kind) (*query.ProjectionMap, error) {
	table, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	return query.
		NewProjectionMap("public", table, "e").
		Project("id", "ID").
		Project("name", "Name").
		Project("match_pattern", "Pattern").
		Project("match_algorithm", "Algorithm"), nil
}

func scanEntity(kind Kind) repository.ScanFunc[Entity] {
	return func(s repository.Scanner) (Entity, error) {
		e := Entity{Kind: kind}
		var algorithm string
		if err := s.Scan(&e.ID, &e.Name, &e.Pattern, &algorithm); err != nil {
			return e, err
		}
		e.Algorithm = ParseAlgorithm(algorithm)
		return e, nil
	}
}
