package store

import (
	"errors"
	"strings"

	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"gorm.io/gorm"
)

// Store provides durable CRUD for groups, entities, memberships and edges,
// enforcing the structural invariants of the graph: unique contacts,
// canonical edge ordering, and referential cleanup on delete.
type Store struct {
	db *gorm.DB
}

// New creates a Store over an open database handle
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a Store bound to a single database
// transaction. Every mutating engine operation goes through here so that a
// mid-operation failure rolls back all of its writes.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// translate maps GORM errors onto the store's error taxonomy
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConstraintViolation
	}
	return err
}

// ---- Groups ----

// CreateGroup inserts a new group
func (s *Store) CreateGroup(g *models.Group) error {
	return translate(s.db.Create(g).Error)
}

// GetGroup fetches a group by id
func (s *Store) GetGroup(id string) (*models.Group, error) {
	var g models.Group
	if err := s.db.First(&g, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

// SaveGroup persists all fields of an already-loaded group
func (s *Store) SaveGroup(g *models.Group) error {
	return translate(s.db.Save(g).Error)
}

// ListGroups returns all groups
func (s *Store) ListGroups() ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// DeleteGroup removes a group and repairs references to it: memberships in
// the group are deleted, entities pointing at it as their main group are
// nulled, and child groups are detached (parent pointer nulled). Successor
// selection for main groups is the engine's job and must happen before this
// call.
func (s *Store) DeleteGroup(id string) error {
	if err := s.db.Where("group_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return err
	}
	if err := s.db.Model(&models.Entity{}).Where("main_group_id = ?", id).
		Update("main_group_id", nil).Error; err != nil {
		return err
	}
	if err := s.db.Model(&models.Group{}).Where("parent_group_id = ?", id).
		Update("parent_group_id", nil).Error; err != nil {
		return err
	}
	res := s.db.Delete(&models.Group{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Entities ----

// CreateEntity inserts a new entity
func (s *Store) CreateEntity(e *models.Entity) error {
	return translate(s.db.Create(e).Error)
}

// GetEntity fetches an entity by id
func (s *Store) GetEntity(id string) (*models.Entity, error) {
	var e models.Entity
	if err := s.db.First(&e, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// SaveEntity persists all fields of an already-loaded entity
func (s *Store) SaveEntity(e *models.Entity) error {
	return translate(s.db.Save(e).Error)
}

// ListEntities returns entities, optionally filtered by a case-insensitive
// name substring and/or membership in a group
func (s *Store) ListEntities(search, groupID string) ([]models.Entity, error) {
	q := s.db.Model(&models.Entity{})
	if search != "" {
		q = q.Where("lower(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if groupID != "" {
		q = q.Joins("JOIN memberships ON memberships.entity_id = entities.id").
			Where("memberships.group_id = ?", groupID)
	}
	var entities []models.Entity
	if err := q.Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// EntitiesWithMainGroup returns every entity whose main group is groupID
func (s *Store) EntitiesWithMainGroup(groupID string) ([]models.Entity, error) {
	var entities []models.Entity
	if err := s.db.Where("main_group_id = ?", groupID).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// SetMainGroup updates a single entity's main group pointer (nil unsets it)
func (s *Store) SetMainGroup(entityID string, groupID *string) error {
	return s.db.Model(&models.Entity{}).Where("id = ?", entityID).
		Update("main_group_id", groupID).Error
}

// UpdatePosition sets an entity's layout position, reporting whether a row
// matched
func (s *Store) UpdatePosition(entityID string, x, y *float64) (bool, error) {
	res := s.db.Model(&models.Entity{}).Where("id = ?", entityID).
		Updates(map[string]interface{}{"pos_x": x, "pos_y": y})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteEntity removes an entity, every edge touching it, and its
// memberships
func (s *Store) DeleteEntity(id string) error {
	if err := s.db.Where("a_entity_id = ? OR b_entity_id = ?", id, id).
		Delete(&models.Edge{}).Error; err != nil {
		return err
	}
	if err := s.db.Where("entity_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return err
	}
	res := s.db.Delete(&models.Entity{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Memberships ----

// MembershipsOf returns an entity's memberships ordered by join time,
// earliest first. The ordering is load-bearing: it is the successor rule
// for main-group reassignment.
func (s *Store) MembershipsOf(entityID string) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := s.db.Where("entity_id = ?", entityID).
		Order("joined_at asc").Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// EarliestMembershipExcluding returns the entity's earliest-joined
// membership in any group other than excludeGroupID, or nil when none
// remain
func (s *Store) EarliestMembershipExcluding(entityID, excludeGroupID string) (*models.Membership, error) {
	var m models.Membership
	err := s.db.Where("entity_id = ? AND group_id <> ?", entityID, excludeGroupID).
		Order("joined_at asc").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMembership inserts a membership row
func (s *Store) AddMembership(entityID, groupID string) error {
	return translate(s.db.Create(&models.Membership{EntityID: entityID, GroupID: groupID}).Error)
}

// RemoveMemberships deletes the entity's membership rows for the given
// groups
func (s *Store) RemoveMemberships(entityID string, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	return s.db.Where("entity_id = ? AND group_id IN ?", entityID, groupIDs).
		Delete(&models.Membership{}).Error
}

// ListMemberships returns all membership rows
func (s *Store) ListMemberships() ([]models.Membership, error) {
	var memberships []models.Membership
	if err := s.db.Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ---- Edges ----

// FindEdge canonicalizes the pair and looks up the matching edge.
// Lookup order never matters: FindEdge(x, y) and FindEdge(y, x) agree.
func (s *Store) FindEdge(a, b string) (*models.Edge, error) {
	lo, hi := models.CanonicalPair(a, b)
	var e models.Edge
	if err := s.db.First(&e, "a_entity_id = ? AND b_entity_id = ?", lo, hi).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// CreateEdge canonicalizes the endpoints and inserts the edge. A duplicate
// canonical pair surfaces as ErrConstraintViolation; idempotent creation is
// layered on top of this by the engine.
func (s *Store) CreateEdge(e *models.Edge) error {
	e.AEntityID, e.BEntityID = models.CanonicalPair(e.AEntityID, e.BEntityID)
	return translate(s.db.Create(e).Error)
}

// GetEdge fetches an edge by id
func (s *Store) GetEdge(id string) (*models.Edge, error) {
	var e models.Edge
	if err := s.db.First(&e, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// SaveEdge persists all fields of an already-loaded edge
func (s *Store) SaveEdge(e *models.Edge) error {
	return translate(s.db.Save(e).Error)
}

// DeleteEdge removes an edge by id
func (s *Store) DeleteEdge(id string) error {
	res := s.db.Delete(&models.Edge{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEdgeBetween canonicalizes the pair and removes the matching edge if
// one exists; removing an absent edge is not an error
func (s *Store) DeleteEdgeBetween(a, b string) error {
	lo, hi := models.CanonicalPair(a, b)
	return s.db.Where("a_entity_id = ? AND b_entity_id = ?", lo, hi).
		Delete(&models.Edge{}).Error
}

// EdgesTouching returns every edge with entityID as either endpoint
func (s *Store) EdgesTouching(entityID string) ([]models.Edge, error) {
	var edges []models.Edge
	if err := s.db.Where("a_entity_id = ? OR b_entity_id = ?", entityID, entityID).
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// ListEdges returns all edges
func (s *Store) ListEdges() ([]models.Edge, error) {
	var edges []models.Edge
	if err := s.db.Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}
