package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group represents a named collection of entities.
// Groups form a hierarchy through ParentGroupID; deleting a parent detaches
// its children (their parent pointer is nulled) rather than cascading.
type Group struct {
	ID            string    `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Name          string    `gorm:"not null" json:"name"`
	Description   string    `json:"description"`
	ColorHex      string    `json:"color_hex"`
	ParentGroupID *string   `gorm:"index" json:"parent_group_id"`

	// Relationships
	Parent      *Group       `gorm:"foreignKey:ParentGroupID" json:"-"`
	Memberships []Membership `gorm:"foreignKey:GroupID" json:"memberships,omitempty"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
