package engine

import (
	"errors"
	"fmt"

	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
)

// reconcileMemberships replaces the entity's membership set with the
// desired set using minimal add/remove operations, so surviving rows keep
// their joined_at timestamps. When the current main group falls out of the
// desired set, the earliest-joined remaining membership becomes the new
// main group, or none when no memberships remain.
//
// The caller is responsible for saving ent afterwards.
func reconcileMemberships(tx *store.Store, ent *models.Entity, desired []string) error {
	current, err := tx.MembershipsOf(ent.ID)
	if err != nil {
		return err
	}
	currentSet := make(map[string]struct{}, len(current))
	for _, m := range current {
		currentSet[m.GroupID] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, gid := range desired {
		desiredSet[gid] = struct{}{}
	}

	for _, gid := range desired {
		if _, ok := currentSet[gid]; ok {
			continue
		}
		currentSet[gid] = struct{}{} // input may repeat a group id
		if err := tx.AddMembership(ent.ID, gid); err != nil {
			return err
		}
	}
	var toRemove []string
	for _, m := range current {
		if _, ok := desiredSet[m.GroupID]; !ok {
			toRemove = append(toRemove, m.GroupID)
		}
	}
	if err := tx.RemoveMemberships(ent.ID, toRemove); err != nil {
		return err
	}

	if ent.MainGroupID != nil {
		if _, ok := desiredSet[*ent.MainGroupID]; ok {
			return nil
		}
	} else {
		return nil
	}
	// Main group fell out of the desired set: pick the earliest-joined of
	// what is left (which is exactly the desired set by now).
	remaining, err := tx.MembershipsOf(ent.ID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		ent.MainGroupID = nil
		return nil
	}
	successor := remaining[0].GroupID
	ent.MainGroupID = &successor
	return nil
}

// reconcileConnections replaces the entity's neighbor set with the desired
// set. Additions go through the idempotent canonical edge path; removals
// delete the canonical edge when present. Self-ids in the desired set are
// skipped.
func reconcileConnections(tx *store.Store, entityID string, desired []string) error {
	edges, err := tx.EdgesTouching(entityID)
	if err != nil {
		return err
	}
	currentSet := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		neighbor := e.AEntityID
		if neighbor == entityID {
			neighbor = e.BEntityID
		}
		currentSet[neighbor] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, oid := range desired {
		if oid == entityID {
			continue
		}
		desiredSet[oid] = struct{}{}
	}

	for oid := range desiredSet {
		if _, ok := currentSet[oid]; ok {
			continue
		}
		if _, _, err := ensureEdge(tx, entityID, oid, nil); err != nil {
			return err
		}
	}
	for oid := range currentSet {
		if _, ok := desiredSet[oid]; ok {
			continue
		}
		if err := tx.DeleteEdgeBetween(entityID, oid); err != nil {
			return err
		}
	}
	return nil
}

// ensureEdge is the single idempotent edge-creation path used by direct
// edge creation, entity reconciliation and import alike: canonicalize,
// return the existing edge when the pair is already connected, insert
// otherwise. Reports whether a new edge was created.
func ensureEdge(tx *store.Store, a, b string, label *string) (*models.Edge, bool, error) {
	if a == b {
		return nil, false, fmt.Errorf("%w: self edge not allowed", store.ErrInvalidOperation)
	}
	existing, err := tx.FindEdge(a, b)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	edge := &models.Edge{AEntityID: a, BEntityID: b, Label: label}
	if err := tx.CreateEdge(edge); err != nil {
		return nil, false, err
	}
	return edge, true, nil
}
