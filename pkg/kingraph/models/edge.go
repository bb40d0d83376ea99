package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Edge is an undirected connection between two entities. Endpoints are
// always stored in canonical order (see CanonicalPair), so each unordered
// pair of entities has at most one row regardless of insertion order.
type Edge struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	AEntityID string    `gorm:"not null;uniqueIndex:idx_edge_pair" json:"a_entity_id"`
	BEntityID string    `gorm:"not null;uniqueIndex:idx_edge_pair" json:"b_entity_id"`
	Label     *string   `json:"label"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (e *Edge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// CanonicalPair returns the two entity IDs ordered under the single total
// order used on every edge read and write path: lexicographic comparison
// of the ID strings. Both arguments must be distinct entity IDs; the
// function itself is pure and total.
func CanonicalPair(a, b string) (string, string) {
	if strings.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}
