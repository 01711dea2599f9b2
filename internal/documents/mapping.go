package documents

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/pkg/query"
	"github.com/JaimeStill/archivist/pkg/repository"
)

const tagIDsExpr = `COALESCE((SELECT json_agg(dt.tag_id ORDER BY dt.tag_id) FROM public.document_tags dt WHERE dt.document_id = d.id), '[]'::json)`

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("title", "Title").
	Project("content", "Content").
	Project("original_filename", "OriginalFilename").
	Project("correspondent_id", "CorrespondentID").
	Project("document_type_id", "DocumentTypeID").
	Project("storage_path_id", "StoragePathID").
	ProjectExpr(tagIDsExpr, "TagIDs").
	Project("document_date", "DocumentDate").
	Project("amount", "Amount").
	Project("currency", "Currency").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Title uses case-insensitive contains matching,
// the assignment ids use exact matching.
type Filters struct {
	Title           *string    `json:"title,omitempty"`
	CorrespondentID *uuid.UUID `json:"correspondent_id,omitempty"`
	DocumentTypeID  *uuid.UUID `json:"document_type_id,omitempty"`
	StoragePathID   *uuid.UUID `json:"storage_path_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Title", f.Title).
		WhereEquals("CorrespondentID", f.CorrespondentID).
		WhereEquals("DocumentTypeID", f.DocumentTypeID).
		WhereEquals("StoragePathID", f.StoragePathID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("title"); t != "" {
		f.Title = &t
	}

	f.CorrespondentID = parseID(values.Get("correspondent_id"))
	f.DocumentTypeID = parseID(values.Get("document_type_id"))
	f.StoragePathID = parseID(values.Get("storage_path_id"))

	return f
}

func parseID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	var tagsRaw []byte

	err := s.Scan(
		&d.ID,
		&d.Title,
		&d.Content,
		&d.OriginalFilename,
		&d.CorrespondentID,
		&d.DocumentTypeID,
		&d.StoragePathID,
		&tagsRaw,
		&d.DocumentDate,
		&d.Amount,
		&d.Currency,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}

	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &d.TagIDs); err != nil {
			return d, fmt.Errorf("unmarshal tag_ids: %w", err)
		}
	}

	if d.TagIDs == nil {
		d.TagIDs = []uuid.UUID{}
	}

	return d, nil
}
