package matching

import (
	"strings"

	"github.com/google/uuid"
)

// Kind identifies a classifiable entity collection.
type Kind string

const (
	KindTag           Kind = "tag"
	KindCorrespondent Kind = "correspondent"
	KindDocumentType  Kind = "document_type"
	KindStoragePath   Kind = "storage_path"
)

// Kinds lists every classifiable entity kind in evaluation order.
var Kinds = []Kind{KindTag, KindCorrespondent, KindDocumentType, KindStoragePath}

// Entity is a classifiable record with its match rule.
type Entity struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Pattern   string    `json:"match"`
	Algorithm Algorithm `json:"matching_algorithm"`
}

// Matches reports whether the entity's rule matches text.
func (e Entity) Matches(text string) bool {
	return Match(text, e.Algorithm, e.Pattern)
}

// Matches holds the entities whose rules matched a text, grouped by kind.
// Errors records kinds that could not be evaluated.
type Matches struct {
	Tags           []Entity       `json:"tags"`
	Correspondents []Entity       `json:"correspondents"`
	DocumentTypes  []Entity       `json:"document_types"`
	StoragePaths   []Entity       `json:"storage_paths"`
	Errors         map[Kind]error `json:"-"`
}

// Of returns the matched entities of kind k.
func (m *Matches) Of(k Kind) []Entity {
	switch k {
	case KindTag:
		return m.Tags
	case KindCorrespondent:
		return m.Correspondents
	case KindDocumentType:
		return m.DocumentTypes
	case KindStoragePath:
		return m.StoragePaths
	}
	return nil
}

// IDs returns the ids of the matched entities of kind k.
func (m *Matches) IDs(k Kind) []uuid.UUID {
	entities := m.Of(k)
	ids := make([]uuid.UUID, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	return ids
}

func (m *Matches) set(k Kind, entities []Entity) {
	switch k {
	case KindTag:
		m.Tags = entities
	case KindCorrespondent:
		m.Correspondents = entities
	case KindDocumentType:
		m.DocumentTypes = entities
	case KindStoragePath:
		m.StoragePaths = entities
	}
}

// Catalog lists every entity of each kind regardless of its rule.
type Catalog struct {
	Tags           []Entity `json:"tags"`
	Correspondents []Entity `json:"correspondents"`
	DocumentTypes  []Entity `json:"document_types"`
	StoragePaths   []Entity `json:"storage_paths"`
}

// Of returns the catalog entries of kind k.
func (c *Catalog) Of(k Kind) []Entity {
	switch k {
	case KindTag:
		return c.Tags
	case KindCorrespondent:
		return c.Correspondents
	case KindDocumentType:
		return c.DocumentTypes
	case KindStoragePath:
		return c.StoragePaths
	}
	return nil
}

func (c *Catalog) set(k Kind, entities []Entity) {
	switch k {
	case KindTag:
		c.Tags = entities
	case KindCorrespondent:
		c.Correspondents = entities
	case KindDocumentType:
		c.DocumentTypes = entities
	case KindStoragePath:
		c.StoragePaths = entities
	}
}

// Resolve finds the first entity whose name contains name or is contained by it,
// compared case-insensitively.
func Resolve(entities []Entity, name string) (Entity, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Entity{}, false
	}

	for _, e := range entities {
		candidate := strings.ToLower(e.Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return e, true
		}
	}
	return Entity{}, false
}
