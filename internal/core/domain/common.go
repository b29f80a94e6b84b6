package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // authoring user
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

// NewAuditFields stamps creation and update with the same actor and time.
func NewAuditFields(userID string, now time.Time) AuditFields {
	return AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}
}

// Touch records an update by userID at now.
func (a *AuditFields) Touch(userID string, now time.Time) {
	a.LastUpdatedAt = now
	a.LastUpdatedBy = userID
}
