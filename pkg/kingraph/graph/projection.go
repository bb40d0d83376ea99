package graph

import (
	"github.com/kingraph/kingraph/pkg/kingraph/store"
)

// DefaultGroupColor is used for groups without an explicit display color
const DefaultGroupColor = "#888888"

// Node is an entity as exposed in the graph view
type Node struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ContactEmail  *string  `json:"contact_email"`
	ContactPhone  *string  `json:"contact_phone"`
	Notes         string   `json:"notes"`
	GroupIDs      []string `json:"groupIds"`
	MainGroupID   *string  `json:"mainGroupId"`
	IsCurrentUser bool     `json:"isCurrentUser"`
	X             *float64 `json:"x"`
	Y             *float64 `json:"y"`
}

// Link is an edge as exposed in the graph view; Source and Target are the
// canonical endpoint order
type Link struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Label  *string `json:"label"`
}

// GroupInfo is a group as exposed in the graph view; MemberIDs is derived
// from memberships, not stored redundantly
type GroupInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	ParentID  *string  `json:"parentId"`
	MemberIDs []string `json:"memberIds"`
}

// Graph is the full exportable projection of the store
type Graph struct {
	Nodes  []Node      `json:"nodes"`
	Links  []Link      `json:"links"`
	Groups []GroupInfo `json:"groups"`
}

// Build assembles the projection from a single consistent read of all four
// collections.
func Build(s *store.Store) (*Graph, error) {
	g := &Graph{Nodes: []Node{}, Links: []Link{}, Groups: []GroupInfo{}}
	err := s.Transaction(func(tx *store.Store) error {
		entities, err := tx.ListEntities("", "")
		if err != nil {
			return err
		}
		edges, err := tx.ListEdges()
		if err != nil {
			return err
		}
		groups, err := tx.ListGroups()
		if err != nil {
			return err
		}
		memberships, err := tx.ListMemberships()
		if err != nil {
			return err
		}

		entityGroups := make(map[string][]string)
		groupMembers := make(map[string][]string)
		for _, m := range memberships {
			entityGroups[m.EntityID] = append(entityGroups[m.EntityID], m.GroupID)
			groupMembers[m.GroupID] = append(groupMembers[m.GroupID], m.EntityID)
		}

		for _, e := range entities {
			gids := entityGroups[e.ID]
			if gids == nil {
				gids = []string{}
			}
			g.Nodes = append(g.Nodes, Node{
				ID:            e.ID,
				Name:          e.Name,
				ContactEmail:  e.ContactEmail,
				ContactPhone:  e.ContactPhone,
				Notes:         e.Notes,
				GroupIDs:      gids,
				MainGroupID:   e.MainGroupID,
				IsCurrentUser: e.IsCurrentUser,
				X:             e.PosX,
				Y:             e.PosY,
			})
		}
		for _, ed := range edges {
			g.Links = append(g.Links, Link{
				ID:     ed.ID,
				Source: ed.AEntityID,
				Target: ed.BEntityID,
				Label:  ed.Label,
			})
		}
		for _, gr := range groups {
			color := gr.ColorHex
			if color == "" {
				color = DefaultGroupColor
			}
			members := groupMembers[gr.ID]
			if members == nil {
				members = []string{}
			}
			g.Groups = append(g.Groups, GroupInfo{
				ID:        gr.ID,
				Name:      gr.Name,
				Color:     color,
				ParentID:  gr.ParentGroupID,
				MemberIDs: members,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
