package engine

import (
	"context"
	"fmt"

	"github.com/kingraph/kingraph/pkg/kingraph/cache"
	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
	"go.uber.org/zap"
)

// Engine applies desired-state mutations to the graph while keeping
// entities, memberships, edges and main-group assignment mutually
// consistent. Every mutating operation runs as a single store transaction
// and invalidates the graph cache after its commit succeeds.
type Engine struct {
	store  *store.Store
	cache  cache.Cache
	logger *zap.Logger
}

// New creates an Engine
func New(s *store.Store, c cache.Cache, logger *zap.Logger) *Engine {
	return &Engine{store: s, cache: c, logger: logger}
}

// invalidate drops the cached graph projection. Invalidation failure is
// logged but never fails the operation: the cache TTL bounds the staleness.
func (e *Engine) invalidate(ctx context.Context) {
	if err := e.cache.Delete(ctx, cache.GraphKey); err != nil {
		e.logger.Warn("graph cache invalidation failed", zap.Error(err))
	}
}

// nilIfBlank normalizes blank optional fields to unset so that multiple
// "empty" values never collide on a unique index
func nilIfBlank(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GroupInput holds the fields for creating a group
type GroupInput struct {
	Name          string
	Description   string
	ColorHex      string
	ParentGroupID *string
}

// GroupPatch holds a partial group update; nil fields are left untouched.
// Supplying an empty ParentGroupID clears the parent pointer.
type GroupPatch struct {
	Name          *string
	Description   *string
	ColorHex      *string
	ParentGroupID *string
}

// CreateGroup creates a group
func (e *Engine) CreateGroup(ctx context.Context, in GroupInput) (*models.Group, error) {
	if in.ParentGroupID != nil {
		if _, err := e.store.GetGroup(*in.ParentGroupID); err != nil {
			return nil, fmt.Errorf("parent group: %w", err)
		}
	}
	g := &models.Group{
		Name:          in.Name,
		Description:   in.Description,
		ColorHex:      in.ColorHex,
		ParentGroupID: in.ParentGroupID,
	}
	if err := e.store.CreateGroup(g); err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	return g, nil
}

// UpdateGroup applies a partial update to a group
func (e *Engine) UpdateGroup(ctx context.Context, id string, patch GroupPatch) (*models.Group, error) {
	var updated *models.Group
	err := e.store.Transaction(func(tx *store.Store) error {
		g, err := tx.GetGroup(id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			g.Name = *patch.Name
		}
		if patch.Description != nil {
			g.Description = *patch.Description
		}
		if patch.ColorHex != nil {
			g.ColorHex = *patch.ColorHex
		}
		if patch.ParentGroupID != nil {
			if parentID := nilIfBlank(*patch.ParentGroupID); parentID == nil {
				g.ParentGroupID = nil
			} else {
				if _, err := tx.GetGroup(*parentID); err != nil {
					return fmt.Errorf("parent group: %w", err)
				}
				g.ParentGroupID = parentID
			}
		}
		updated = g
		return tx.SaveGroup(g)
	})
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	return updated, nil
}

// DeleteGroup removes a group. Every entity whose main group was the
// deleted group is reassigned to its earliest-joined remaining membership,
// or left without a main group when none remain. Memberships in the group
// are removed and child groups detached.
func (e *Engine) DeleteGroup(ctx context.Context, id string) error {
	err := e.store.Transaction(func(tx *store.Store) error {
		if _, err := tx.GetGroup(id); err != nil {
			return err
		}
		affected, err := tx.EntitiesWithMainGroup(id)
		if err != nil {
			return err
		}
		for _, ent := range affected {
			next, err := tx.EarliestMembershipExcluding(ent.ID, id)
			if err != nil {
				return err
			}
			var successor *string
			if next != nil {
				successor = &next.GroupID
			}
			if err := tx.SetMainGroup(ent.ID, successor); err != nil {
				return err
			}
		}
		return tx.DeleteGroup(id)
	})
	if err != nil {
		return err
	}
	e.logger.Info("group deleted", zap.String("group_id", id))
	e.invalidate(ctx)
	return nil
}

// EntityInput holds the fields for creating an entity along with its
// initial group memberships and connections
type EntityInput struct {
	Name          string
	ContactEmail  string
	ContactPhone  string
	Notes         string
	MainGroupID   string
	IsCurrentUser bool
	PosX          *float64
	PosY          *float64
	GroupIDs      []string
	ConnectedIDs  []string
}

// EntityPatch holds a partial entity update; nil fields are left untouched.
// GroupIDs and ConnectedIDs, when supplied, are desired-state sets and are
// reconciled against current state rather than replacing it wholesale.
type EntityPatch struct {
	Name          *string
	ContactEmail  *string
	ContactPhone  *string
	Notes         *string
	MainGroupID   *string
	IsCurrentUser *bool
	PosX          *float64
	PosY          *float64
	GroupIDs      *[]string
	ConnectedIDs  *[]string
}

// CreateEntity creates an entity, its memberships and its connections as
// one atomic unit. A uniqueness violation aborts the whole create.
func (e *Engine) CreateEntity(ctx context.Context, in EntityInput) (*models.Entity, error) {
	ent := &models.Entity{
		Name:          in.Name,
		ContactEmail:  nilIfBlank(in.ContactEmail),
		ContactPhone:  nilIfBlank(in.ContactPhone),
		Notes:         in.Notes,
		MainGroupID:   nilIfBlank(in.MainGroupID),
		IsCurrentUser: in.IsCurrentUser,
		PosX:          in.PosX,
		PosY:          in.PosY,
	}
	// Default the main group to the first supplied group when unset
	if ent.MainGroupID == nil && len(in.GroupIDs) > 0 {
		ent.MainGroupID = &in.GroupIDs[0]
	}
	err := e.store.Transaction(func(tx *store.Store) error {
		if err := tx.CreateEntity(ent); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(in.GroupIDs))
		for _, gid := range in.GroupIDs {
			if _, ok := seen[gid]; ok {
				continue
			}
			seen[gid] = struct{}{}
			if err := tx.AddMembership(ent.ID, gid); err != nil {
				return err
			}
		}
		for _, oid := range in.ConnectedIDs {
			if oid == ent.ID {
				continue
			}
			if _, _, err := ensureEdge(tx, ent.ID, oid, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	return ent, nil
}

// UpdateEntity applies supplied scalar fields and, when desired membership
// or connection sets are given, reconciles them with minimal add/remove
// operations. The whole update commits atomically.
func (e *Engine) UpdateEntity(ctx context.Context, id string, patch EntityPatch) (*models.Entity, error) {
	var updated *models.Entity
	err := e.store.Transaction(func(tx *store.Store) error {
		ent, err := tx.GetEntity(id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			ent.Name = *patch.Name
		}
		if patch.ContactEmail != nil {
			ent.ContactEmail = nilIfBlank(*patch.ContactEmail)
		}
		if patch.ContactPhone != nil {
			ent.ContactPhone = nilIfBlank(*patch.ContactPhone)
		}
		if patch.Notes != nil {
			ent.Notes = *patch.Notes
		}
		if patch.MainGroupID != nil {
			ent.MainGroupID = nilIfBlank(*patch.MainGroupID)
		}
		if patch.IsCurrentUser != nil {
			ent.IsCurrentUser = *patch.IsCurrentUser
		}
		if patch.PosX != nil {
			ent.PosX = patch.PosX
		}
		if patch.PosY != nil {
			ent.PosY = patch.PosY
		}
		if patch.GroupIDs != nil {
			if err := reconcileMemberships(tx, ent, *patch.GroupIDs); err != nil {
				return err
			}
		}
		if patch.ConnectedIDs != nil {
			if err := reconcileConnections(tx, ent.ID, *patch.ConnectedIDs); err != nil {
				return err
			}
		}
		updated = ent
		return tx.SaveEntity(ent)
	})
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	return updated, nil
}

// DeleteEntity removes an entity together with every edge touching it and
// its memberships. Other entities' main groups are untouched: removing an
// entity does not invalidate anyone else's group membership.
func (e *Engine) DeleteEntity(ctx context.Context, id string) error {
	err := e.store.Transaction(func(tx *store.Store) error {
		return tx.DeleteEntity(id)
	})
	if err != nil {
		return err
	}
	e.logger.Info("entity deleted", zap.String("entity_id", id))
	e.invalidate(ctx)
	return nil
}

// CreateEdge connects two entities. The pair is canonicalized, so argument
// order never matters, and creation is idempotent: when the pair is already
// connected the existing edge is returned unchanged. Self-edges are
// rejected with ErrInvalidOperation.
func (e *Engine) CreateEdge(ctx context.Context, a, b string, label *string) (*models.Edge, error) {
	var edge *models.Edge
	var created bool
	err := e.store.Transaction(func(tx *store.Store) error {
		var err error
		edge, created, err = ensureEdge(tx, a, b, label)
		return err
	})
	if err != nil {
		return nil, err
	}
	if created {
		e.invalidate(ctx)
	}
	return edge, nil
}

// UpdateEdge changes an edge's label
func (e *Engine) UpdateEdge(ctx context.Context, id string, label *string) (*models.Edge, error) {
	var edge *models.Edge
	err := e.store.Transaction(func(tx *store.Store) error {
		var err error
		edge, err = tx.GetEdge(id)
		if err != nil {
			return err
		}
		edge.Label = label
		return tx.SaveEdge(edge)
	})
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	return edge, nil
}

// DeleteEdge removes an edge by id
func (e *Engine) DeleteEdge(ctx context.Context, id string) error {
	if err := e.store.Transaction(func(tx *store.Store) error {
		return tx.DeleteEdge(id)
	}); err != nil {
		return err
	}
	e.invalidate(ctx)
	return nil
}

// Position is one entry of a bulk layout update
type Position struct {
	ID string
	X  *float64
	Y  *float64
}

// SetPositions updates entity layout positions in bulk, returning how many
// entities matched. The cache is invalidated once for the whole batch.
func (e *Engine) SetPositions(ctx context.Context, positions []Position) (int, error) {
	count := 0
	err := e.store.Transaction(func(tx *store.Store) error {
		for _, p := range positions {
			ok, err := tx.UpdatePosition(p.ID, p.X, p.Y)
			if err != nil {
				return err
			}
			if ok {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.invalidate(ctx)
	return count, nil
}
