package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entity represents a person (a node) in the relationship graph.
// ContactEmail and ContactPhone are globally unique when present; blank
// values are stored as NULL so multiple "empty" contacts never collide.
// MainGroupID, when set, must be one of the entity's current memberships —
// the reconciliation engine maintains that invariant.
type Entity struct {
	ID            string    `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Name          string    `gorm:"not null" json:"name"`
	ContactEmail  *string   `gorm:"uniqueIndex" json:"contact_email"`
	ContactPhone  *string   `gorm:"uniqueIndex" json:"contact_phone"`
	Notes         string    `json:"notes"`
	MainGroupID   *string   `gorm:"index" json:"main_group_id"`
	IsCurrentUser bool      `gorm:"default:false" json:"is_current_user"`
	PosX          *float64  `json:"x"`
	PosY          *float64  `json:"y"`

	// Relationships
	Memberships []Membership `gorm:"foreignKey:EntityID" json:"memberships,omitempty"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (e *Entity) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
