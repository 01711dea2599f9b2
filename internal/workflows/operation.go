package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/documents"
)

// Action types stored on workflow actions.
const (
	ActionAssignTag           = "assign_tag"
	ActionAssignCorrespondent = "assign_correspondent"
	ActionAssignType          = "assign_type"
	ActionAssignStoragePath   = "assign_storage_path"
)

// Operation is a document mutation performed by an action. The set of
// implementations is closed: AssignTag, AssignCorrespondent, AssignType,
// AssignStoragePath, and UnknownAction.
type Operation interface {
	operation()
}

// AssignTag adds a tag if the document does not already carry it.
type AssignTag struct {
	TagID uuid.UUID
}

// AssignCorrespondent overwrites the document correspondent.
type AssignCorrespondent struct {
	CorrespondentID uuid.UUID
}

// AssignType overwrites the document type.
type AssignType struct {
	DocumentTypeID uuid.UUID
}

// AssignStoragePath overwrites the document storage path.
type AssignStoragePath struct {
	StoragePathID uuid.UUID
}

// UnknownAction is a stored action that could not be parsed. Executing it fails.
type UnknownAction struct {
	Type  string
	Value string
	Err   error
}

func (AssignTag) operation()           {}
func (AssignCorrespondent) operation() {}
func (AssignType) operation()          {}
func (AssignStoragePath) operation()   {}
func (UnknownAction) operation()       {}

// ParseOperation builds an Operation from its stored type and value.
func ParseOperation(actionType, value string) Operation {
	value = strings.TrimSpace(value)

	parse := func(build func(uuid.UUID) Operation) Operation {
		id, err := uuid.Parse(value)
		if err != nil {
			return UnknownAction{Type: actionType, Value: value, Err: err}
		}
		return build(id)
	}

	switch strings.TrimSpace(actionType) {
	case ActionAssignTag:
		return parse(func(id uuid.UUID) Operation { return AssignTag{TagID: id} })
	case ActionAssignCorrespondent:
		return parse(func(id uuid.UUID) Operation { return AssignCorrespondent{CorrespondentID: id} })
	case ActionAssignType:
		return parse(func(id uuid.UUID) Operation { return AssignType{DocumentTypeID: id} })
	case ActionAssignStoragePath:
		return parse(func(id uuid.UUID) Operation { return AssignStoragePath{StoragePathID: id} })
	default:
		return UnknownAction{
			Type:  actionType,
			Value: value,
			Err:   fmt.Errorf("unknown action type %q", actionType),
		}
	}
}

// Perform applies op to the document and returns a description of the change.
func Perform(ctx context.Context, docs documents.System, documentID uuid.UUID, op Operation) (string, error) {
	switch op := op.(type) {
	case AssignTag:
		if err := docs.AddTag(ctx, documentID, op.TagID); err != nil {
			return "", fmt.Errorf("assign tag %s: %w", op.TagID, err)
		}
		return fmt.Sprintf("tag %s assigned", op.TagID), nil
	case AssignCorrespondent:
		if err := docs.SetCorrespondent(ctx, documentID, op.CorrespondentID); err != nil {
			return "", fmt.Errorf("assign correspondent %s: %w", op.CorrespondentID, err)
		}
		return fmt.Sprintf("correspondent %s assigned", op.CorrespondentID), nil
	case AssignType:
		if err := docs.SetDocumentType(ctx, documentID, op.DocumentTypeID); err != nil {
			return "", fmt.Errorf("assign document type %s: %w", op.DocumentTypeID, err)
		}
		return fmt.Sprintf("document type %s assigned", op.DocumentTypeID), nil
	case AssignStoragePath:
		if err := docs.SetStoragePath(ctx, documentID, op.StoragePathID); err != nil {
			return "", fmt.Errorf("assign storage path %s: %w", op.StoragePathID, err)
		}
		return fmt.Sprintf("storage path %s assigned", op.StoragePathID), nil
	case UnknownAction:
		return "", fmt.Errorf("%w: %s %q: %v", ErrInvalidAction, op.Type, op.Value, op.Err)
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidAction, op)
	}
}
