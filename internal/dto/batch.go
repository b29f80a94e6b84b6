package dto

import "time"

// BatchRequest applies one operation to many entries. Reason and comments are shared.
type BatchRequest struct {
	Operation     string     `json:"operation" binding:"required,oneof=approve post reverse"`
	EntryIDs      []string   `json:"entryIDs" binding:"required,min=1,dive,required"`
	Reason        string     `json:"reason,omitempty" binding:"max=500"`
	Comments      string     `json:"comments,omitempty" binding:"max=1000"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}

// ImportOptions are the form fields sent alongside an import file.
type ImportOptions struct {
	PostImmediately bool `form:"postImmediately"`
}
