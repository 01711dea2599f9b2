// Package documents implements the document store collaborator for Archivist.
// It reads documents with their current assignments and writes the fields
// produced by classification and workflow actions.
package documents

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document lifecycle events accepted from ingestion collaborators.
const (
	EventAdded    = "document_added"
	EventModified = "document_modified"
)

// Document is an ingested document with its extracted text and current assignments.
type Document struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Content          string      `json:"content"`
	OriginalFilename string      `json:"original_filename"`
	CorrespondentID  *uuid.UUID  `json:"correspondent_id"`
	DocumentTypeID   *uuid.UUID  `json:"document_type_id"`
	StoragePathID    *uuid.UUID  `json:"storage_path_id"`
	TagIDs           []uuid.UUID `json:"tag_ids"`
	DocumentDate     *time.Time  `json:"document_date"`
	Amount           *float64    `json:"amount"`
	Currency         *string     `json:"currency"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Text returns the searchable text of the document: title, content, and filename.
func (d *Document) Text() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Title, d.Content, d.OriginalFilename} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// HasTag reports whether the document currently carries tagID.
func (d *Document) HasTag(tagID uuid.UUID) bool {
	for _, id := range d.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// Assignment carries the classified fields to write to a document.
// Nil fields and an empty TagIDs slice leave the stored value untouched.
// Tags are added, never removed.
type Assignment struct {
	CorrespondentID *uuid.UUID  `json:"correspondent_id,omitempty"`
	DocumentTypeID  *uuid.UUID  `json:"document_type_id,omitempty"`
	TagIDs          []uuid.UUID `json:"tag_ids,omitempty"`
	DocumentDate    *time.Time  `json:"document_date,omitempty"`
	Amount          *float64    `json:"amount,omitempty"`
	Currency        *string     `json:"currency,omitempty"`
}

// Empty reports whether the assignment would write nothing.
func (a Assignment) Empty() bool {
	return a.CorrespondentID == nil &&
		a.DocumentTypeID == nil &&
		len(a.TagIDs) == 0 &&
		a.DocumentDate == nil &&
		a.Amount == nil &&
		a.Currency == nil
}

// DateField names the document date used to select scheduled candidates.
type DateField string

const (
	DateCreated     DateField = "created"
	DateAdded       DateField = "added"
	DateModified    DateField = "modified"
	DateCustomField DateField = "custom_field"
)
