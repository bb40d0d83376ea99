package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/cache"
	"github.com/kingraph/kingraph/pkg/kingraph/csvio"
	"github.com/kingraph/kingraph/pkg/kingraph/edges"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/entities"
	"github.com/kingraph/kingraph/pkg/kingraph/graph"
	"github.com/kingraph/kingraph/pkg/kingraph/groups"
	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// setupFullServer creates a Gin engine with all routes registered
// This mirrors the setup in cmd/kingraph-server/main.go
func setupFullServer(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	log := zap.NewNop()
	c := cache.NewMemory()
	st := store.New(db)
	eng := engine.New(st, c, log)

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(200, gin.H{
				"status":  "ok",
				"service": "kingraph",
			})
		})

		entities.NewHandler(eng, st).RegisterRoutes(api)
		groups.NewHandler(eng, st).RegisterRoutes(api)
		edges.NewHandler(eng).RegisterRoutes(api)
		graph.NewHandler(eng, st, c, log).RegisterRoutes(api)
		csvio.NewHandler(eng, st, log).RegisterRoutes(api)
	}

	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	router := setupFullServer(setupTestDB(t))

	for _, path := range []string{"/health", "/api/health"} {
		req, _ := http.NewRequest("GET", path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, resp.Code)
		}
	}
}

// TestGraphLifecycle walks the primary flow end to end: build a small
// graph through the HTTP API, read the projection, reconcile a person's
// connections away and confirm the projection follows.
func TestGraphLifecycle(t *testing.T) {
	router := setupFullServer(setupTestDB(t))

	// Create a group
	resp := doJSON(t, router, "POST", "/api/groups", groups.CreateGroupRequest{Name: "Family"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Failed to create group: %d %s", resp.Code, resp.Body.String())
	}
	var g groups.GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &g)

	// Create person A in the group
	resp = doJSON(t, router, "POST", "/api/entities", entities.CreateEntityRequest{
		Name:     "Alice",
		GroupsIn: []string{g.ID},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Failed to create Alice: %d %s", resp.Code, resp.Body.String())
	}
	var alice entities.EntityResponse
	json.Unmarshal(resp.Body.Bytes(), &alice)
	if alice.MainGroupID == nil || *alice.MainGroupID != g.ID {
		t.Errorf("Expected Alice's main group to default to %s, got %v", g.ID, alice.MainGroupID)
	}

	// Create person B in the same group, connected to A
	resp = doJSON(t, router, "POST", "/api/entities", entities.CreateEntityRequest{
		Name:            "Bob",
		GroupsIn:        []string{g.ID},
		ConnectedPeople: []string{alice.ID},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Failed to create Bob: %d %s", resp.Code, resp.Body.String())
	}
	var bob entities.EntityResponse
	json.Unmarshal(resp.Body.Bytes(), &bob)

	// The projection shows both people and their connection
	req, _ := http.NewRequest("GET", "/api/graph", nil)
	graphResp := httptest.NewRecorder()
	router.ServeHTTP(graphResp, req)
	if graphResp.Code != http.StatusOK {
		t.Fatalf("Failed to read graph: %d %s", graphResp.Code, graphResp.Body.String())
	}
	var projection graph.Graph
	json.Unmarshal(graphResp.Body.Bytes(), &projection)
	if len(projection.Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(projection.Nodes))
	}
	if len(projection.Links) != 1 {
		t.Errorf("Expected 1 link, got %d", len(projection.Links))
	}
	if len(projection.Groups) != 1 || len(projection.Groups[0].MemberIDs) != 2 {
		t.Errorf("Expected one group with both members, got %+v", projection.Groups)
	}

	// Reconcile Bob's connections away
	none := []string{}
	resp = doJSON(t, router, "PATCH", "/api/entities/"+bob.ID, entities.UpdateEntityRequest{
		ConnectedPeople: &none,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Failed to update Bob: %d %s", resp.Code, resp.Body.String())
	}

	// The cached projection was invalidated by the mutation
	graphResp = httptest.NewRecorder()
	router.ServeHTTP(graphResp, req)
	projection = graph.Graph{}
	json.Unmarshal(graphResp.Body.Bytes(), &projection)
	if len(projection.Links) != 0 {
		t.Errorf("Expected no links after reconciliation, got %d", len(projection.Links))
	}
	if len(projection.Nodes) != 2 {
		t.Errorf("Expected both nodes to remain, got %d", len(projection.Nodes))
	}
}

// TestEdgeAPIRoundTrip exercises direct edge CRUD alongside the graph view
func TestEdgeAPIRoundTrip(t *testing.T) {
	router := setupFullServer(setupTestDB(t))

	resp := doJSON(t, router, "POST", "/api/entities", entities.CreateEntityRequest{Name: "Alice"})
	var alice entities.EntityResponse
	json.Unmarshal(resp.Body.Bytes(), &alice)
	resp = doJSON(t, router, "POST", "/api/entities", entities.CreateEntityRequest{Name: "Bob"})
	var bob entities.EntityResponse
	json.Unmarshal(resp.Body.Bytes(), &bob)

	label := "friend"
	resp = doJSON(t, router, "POST", "/api/edges", edges.CreateEdgeRequest{AID: alice.ID, BID: bob.ID, Label: &label})
	if resp.Code != http.StatusOK {
		t.Fatalf("Failed to create edge: %d %s", resp.Code, resp.Body.String())
	}
	var created map[string]string
	json.Unmarshal(resp.Body.Bytes(), &created)

	// Creating the reversed pair returns the same edge
	resp = doJSON(t, router, "POST", "/api/edges", edges.CreateEdgeRequest{AID: bob.ID, BID: alice.ID})
	var again map[string]string
	json.Unmarshal(resp.Body.Bytes(), &again)
	if created["id"] != again["id"] {
		t.Errorf("Expected idempotent edge creation, got %s and %s", created["id"], again["id"])
	}

	resp = doJSON(t, router, "DELETE", "/api/edges/"+created["id"], nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Failed to delete edge: %d %s", resp.Code, resp.Body.String())
	}

	req, _ := http.NewRequest("GET", "/api/graph", nil)
	graphResp := httptest.NewRecorder()
	router.ServeHTTP(graphResp, req)
	var projection graph.Graph
	json.Unmarshal(graphResp.Body.Bytes(), &projection)
	if len(projection.Links) != 0 {
		t.Errorf("Expected no links after edge delete, got %d", len(projection.Links))
	}
}

// TestDeleteGroupViaAPI verifies the main-group successor rule through the
// HTTP surface
func TestDeleteGroupViaAPI(t *testing.T) {
	router := setupFullServer(setupTestDB(t))

	resp := doJSON(t, router, "POST", "/api/groups", groups.CreateGroupRequest{Name: "G1"})
	var g1 groups.GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &g1)
	resp = doJSON(t, router, "POST", "/api/groups", groups.CreateGroupRequest{Name: "G2"})
	var g2 groups.GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &g2)

	resp = doJSON(t, router, "POST", "/api/entities", entities.CreateEntityRequest{
		Name:     "Alice",
		GroupsIn: []string{g1.ID, g2.ID},
	})
	var alice entities.EntityResponse
	json.Unmarshal(resp.Body.Bytes(), &alice)

	resp = doJSON(t, router, "DELETE", "/api/groups/"+g1.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Failed to delete group: %d %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, router, "GET", "/api/entities/"+alice.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Failed to fetch Alice: %d %s", resp.Code, resp.Body.String())
	}
	var got entities.EntityResponse
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.MainGroupID == nil || *got.MainGroupID != g2.ID {
		t.Errorf("Expected main group reassigned to %s, got %v", g2.ID, got.MainGroupID)
	}
}
