package table

import "github.com/noah-isme/assignment-tracker-api/internal/models"

// DraftKind tags the active draft.
type DraftKind int

const (
	NoDraft DraftKind = iota
	NewDraft
	EditDraft
)

func (k DraftKind) String() string {
	switch k {
	case NewDraft:
		return "new"
	case EditDraft:
		return "edit"
	default:
		return "none"
	}
}

// Draft holds unsaved field values. AssignmentID is only set for EditDraft.
type Draft struct {
	Kind         DraftKind
	AssignmentID string
	Fields       models.AssignmentFields
}

// Active reports whether a draft is being composed.
func (d Draft) Active() bool {
	return d.Kind != NoDraft
}
