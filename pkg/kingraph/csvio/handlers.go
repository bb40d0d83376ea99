package csvio

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
	"go.uber.org/zap"
)

// Handler handles bulk CSV export and import. Import is built entirely on
// the idempotent create primitives, so re-importing an export never
// duplicates edges.
type Handler struct {
	engine *engine.Engine
	store  *store.Store
	logger *zap.Logger
}

// NewHandler creates a new CSV import/export handler
func NewHandler(e *engine.Engine, s *store.Store, logger *zap.Logger) *Handler {
	return &Handler{engine: e, store: s, logger: logger}
}

// ImportResult summarizes an import operation
type ImportResult struct {
	Groups   int `json:"groups"`
	Entities int `json:"entities"`
	Edges    int `json:"edges"`
}

// Export returns a zip archive of groups.csv, people.csv and
// connections.csv
// @Summary Export the graph as CSV
// @Description Download a zip of groups.csv, people.csv and connections.csv
// @Tags csv
// @Produce application/zip
// @Success 200 {file} binary
// @Router /csv/export [get]
func (h *Handler) Export(c *gin.Context) {
	var groups []models.Group
	var entities []models.Entity
	var memberships []models.Membership
	var edges []models.Edge
	err := h.store.Transaction(func(tx *store.Store) error {
		var err error
		if groups, err = tx.ListGroups(); err != nil {
			return err
		}
		if entities, err = tx.ListEntities("", ""); err != nil {
			return err
		}
		if memberships, err = tx.ListMemberships(); err != nil {
			return err
		}
		edges, err = tx.ListEdges()
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read graph"})
		return
	}

	groupNameByID := make(map[string]string, len(groups))
	for _, g := range groups {
		groupNameByID[g.ID] = g.Name
	}
	entityGroups := make(map[string][]string)
	for _, m := range memberships {
		entityGroups[m.EntityID] = append(entityGroups[m.EntityID], m.GroupID)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeGroupsCSV(zw, groups, groupNameByID); err == nil {
		err = writePeopleCSV(zw, entities, entityGroups, groupNameByID)
		if err == nil {
			err = writeConnectionsCSV(zw, edges)
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write export"})
		return
	}
	if err := zw.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write export"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="export.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func writeGroupsCSV(zw *zip.Writer, groups []models.Group, nameByID map[string]string) error {
	w, err := zw.Create("groups.csv")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "description", "color_hex", "parent_group_name"}); err != nil {
		return err
	}
	for _, g := range groups {
		parentName := ""
		if g.ParentGroupID != nil {
			parentName = nameByID[*g.ParentGroupID]
		}
		if err := cw.Write([]string{g.Name, g.Description, g.ColorHex, parentName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePeopleCSV(zw *zip.Writer, entities []models.Entity, entityGroups map[string][]string, nameByID map[string]string) error {
	w, err := zw.Create("people.csv")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "contact_email", "contact_phone", "notes", "main_group_name", "groups"}); err != nil {
		return err
	}
	for _, e := range entities {
		var groupNames []string
		for _, gid := range entityGroups[e.ID] {
			groupNames = append(groupNames, nameByID[gid])
		}
		mainName := ""
		if e.MainGroupID != nil {
			mainName = nameByID[*e.MainGroupID]
		}
		row := []string{
			e.Name,
			deref(e.ContactEmail),
			deref(e.ContactPhone),
			strings.ReplaceAll(e.Notes, "\n", " "),
			mainName,
			strings.Join(groupNames, ";"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeConnectionsCSV(zw *zip.Writer, edges []models.Edge) error {
	w, err := zw.Create("connections.csv")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"a_identifier", "b_identifier", "label"}); err != nil {
		return err
	}
	for _, e := range edges {
		if err := cw.Write([]string{e.AEntityID, e.BEntityID, deref(e.Label)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Import loads groups, people and connections from three uploaded CSV
// files. Connection identifiers are resolved by contact email first, then
// by name. Group parent names are not resolved on import (matching export
// round-trip limitations).
// @Summary Import graph data from CSV
// @Tags csv
// @Accept multipart/form-data
// @Produce json
// @Param groups_file formData file true "groups.csv"
// @Param people_file formData file true "people.csv"
// @Param connections_file formData file true "connections.csv"
// @Success 200 {object} ImportResult
// @Failure 400 {object} map[string]string "Malformed upload"
// @Router /csv/import [post]
func (h *Handler) Import(c *gin.Context) {
	groupRows, err := readCSVFile(c, "groups_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	peopleRows, err := readCSVFile(c, "people_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	connectionRows, err := readCSVFile(c, "connections_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	result := ImportResult{}

	groupIDByName := make(map[string]string)
	for _, row := range groupRows {
		g, err := h.engine.CreateGroup(ctx, engine.GroupInput{
			Name:        row["name"],
			Description: row["description"],
			ColorHex:    row["color_hex"],
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import groups"})
			return
		}
		groupIDByName[g.Name] = g.ID
		result.Groups++
	}

	entityIDByIdentifier := make(map[string]string)
	for _, row := range peopleRows {
		var groupIDs []string
		for _, name := range strings.Split(row["groups"], ";") {
			name = strings.TrimSpace(name)
			if gid, ok := groupIDByName[name]; name != "" && ok {
				groupIDs = append(groupIDs, gid)
			}
		}
		ent, err := h.engine.CreateEntity(ctx, engine.EntityInput{
			Name:         row["name"],
			ContactEmail: row["contact_email"],
			ContactPhone: row["contact_phone"],
			Notes:        row["notes"],
			MainGroupID:  groupIDByName[row["main_group_name"]],
			GroupIDs:     groupIDs,
		})
		if err != nil {
			h.logger.Warn("skipping person row", zap.String("name", row["name"]), zap.Error(err))
			continue
		}
		if ent.ContactEmail != nil {
			entityIDByIdentifier[*ent.ContactEmail] = ent.ID
		}
		if _, ok := entityIDByIdentifier[ent.Name]; !ok {
			entityIDByIdentifier[ent.Name] = ent.ID
		}
		result.Entities++
	}

	for _, row := range connectionRows {
		aID, okA := entityIDByIdentifier[row["a_identifier"]]
		bID, okB := entityIDByIdentifier[row["b_identifier"]]
		if !okA || !okB || aID == bID {
			continue
		}
		var label *string
		if row["label"] != "" {
			l := row["label"]
			label = &l
		}
		if _, err := h.engine.CreateEdge(ctx, aID, bID, label); err != nil {
			h.logger.Warn("skipping connection row", zap.Error(err))
			continue
		}
		result.Edges++
	}

	c.JSON(http.StatusOK, result)
}

// readCSVFile parses a header-keyed CSV upload into a slice of row maps
func readCSVFile(c *gin.Context, field string) ([]map[string]string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func(f multipart.File) { _ = f.Close() }(f)
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RegisterRoutes registers CSV import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/csv/export", h.Export)
	rg.POST("/csv/import", h.Import)
}
