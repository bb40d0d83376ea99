package models

import "time"

// Membership represents the many-to-many relationship between entities and
// groups. JoinedAt drives main-group successor selection (earliest joined
// wins), so existing rows are never rewritten during reconciliation.
type Membership struct {
	EntityID string    `gorm:"primarykey" json:"entity_id"`
	GroupID  string    `gorm:"primarykey" json:"group_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	// Relationships
	Entity Entity `gorm:"foreignKey:EntityID" json:"-"`
	Group  Group  `gorm:"foreignKey:GroupID" json:"-"`
}
