package models

// IDMapping pairs a client-minted id with the id the server assigned.
type IDMapping struct {
	NewID string `json:"newid"`
	OldID string `json:"oldid"`
}

type DeleteResult struct {
	OldID string `json:"oldid"`
}

type UpdateIDs struct {
	NewID    string      `json:"newid"`
	OldID    string      `json:"oldid"`
	Children []IDMapping `json:"children"`
}

type UpdateChildIDs struct {
	Children []IDMapping `json:"children"`
}

// UpsertResult is the server reply to a site upsert. Exactly one field is set.
type UpsertResult struct {
	Delete         *DeleteResult   `json:"delete,omitempty"`
	UpdateIDs      *UpdateIDs      `json:"updateids,omitempty"`
	UpdateChildIDs *UpdateChildIDs `json:"updatectrlids,omitempty"`
}

// ChildMappings returns the child remaps of either update variant.
func (r UpsertResult) ChildMappings() []IDMapping {
	switch {
	case r.UpdateIDs != nil:
		return r.UpdateIDs.Children
	case r.UpdateChildIDs != nil:
		return r.UpdateChildIDs.Children
	default:
		return nil
	}
}
