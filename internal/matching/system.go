package matching

import (
	"context"
	"log/slog"
)

// Source reads classifiable entities by kind.
type Source interface {
	// Rules returns entities of kind with a non-empty pattern and an algorithm other than none.
	Rules(ctx context.Context, kind Kind) ([]Entity, error)
	// All returns every entity of kind.
	All(ctx context.Context, kind Kind) ([]Entity, error)
}

// System applies stored match rules to document text.
type System interface {
	// Apply evaluates every rule of every kind against text. A kind whose rules
	// cannot be read is recorded in Matches.Errors and the remaining kinds are still evaluated.
	Apply(ctx context.Context, text string) *Matches
	// Catalog lists all entities per kind. Kinds that fail to load are logged and left empty.
	Catalog(ctx context.Context) *Catalog
}

type engine struct {
	src    Source
	logger *slog.Logger
}

// New creates a matching System over src.
func New(src Source, logger *slog.Logger) System {
	return &engine{
		src:    src,
		logger: logger.With("system", "matching"),
	}
}

func (e *engine) Apply(ctx context.Context, text string) *Matches {
	m := &Matches{Errors: make(map[Kind]error)}

	for _, kind := range Kinds {
		rules, err := e.src.Rules(ctx, kind)
		if err != nil {
			e.logger.WarnContext(ctx, "match rules unavailable", "kind", kind, "error", err)
			m.Errors[kind] = err
			m.set(kind, []Entity{})
			continue
		}

		matched := make([]Entity, 0)
		for _, rule := range rules {
			if rule.Matches(text) {
				matched = append(matched, rule)
			}
		}
		m.set(kind, matched)
	}

	return m
}

func (e *engine) Catalog(ctx context.Context) *Catalog {
	c := &Catalog{}
	for _, kind := range Kinds {
		entities, err := e.src.All(ctx, kind)
		if err != nil {
			e.logger.WarnContext(ctx, "catalog kind unavailable", "kind", kind, "error", err)
			entities = []Entity{}
		}
		c.set(kind, entities)
	}
	return c
}
