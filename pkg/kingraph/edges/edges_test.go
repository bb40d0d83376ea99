package edges

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/cache"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*gin.Engine, *engine.Engine, *store.Store) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	s := store.New(db)
	eng := engine.New(s, cache.NewMemory(), zap.NewNop())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(eng).RegisterRoutes(r.Group("/api"))
	return r, eng, s
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

func seedPair(t *testing.T, eng *engine.Engine) (string, string) {
	t.Helper()
	a, err := eng.CreateEntity(context.Background(), engine.EntityInput{Name: "A"})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	b, err := eng.CreateEntity(context.Background(), engine.EntityInput{Name: "B"})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	return a.ID, b.ID
}

func TestCreateEdgeIdempotent(t *testing.T) {
	router, eng, _ := setupTest(t)
	aID, bID := seedPair(t, eng)

	resp := doJSON(t, router, "POST", "/api/edges", CreateEdgeRequest{AID: aID, BID: bID})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var first map[string]string
	json.Unmarshal(resp.Body.Bytes(), &first)
	if first["id"] == "" {
		t.Fatal("Expected an edge id")
	}

	// Reversed endpoints resolve to the same edge
	resp = doJSON(t, router, "POST", "/api/edges", CreateEdgeRequest{AID: bID, BID: aID})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var second map[string]string
	json.Unmarshal(resp.Body.Bytes(), &second)
	if first["id"] != second["id"] {
		t.Errorf("Expected the same edge id, got %s and %s", first["id"], second["id"])
	}
}

func TestCreateEdgeSelfRejected(t *testing.T) {
	router, eng, _ := setupTest(t)
	aID, _ := seedPair(t, eng)

	resp := doJSON(t, router, "POST", "/api/edges", CreateEdgeRequest{AID: aID, BID: aID})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for self edge, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateEdgeMalformedID(t *testing.T) {
	router, _, _ := setupTest(t)

	resp := doJSON(t, router, "POST", "/api/edges", CreateEdgeRequest{AID: "not-a-uuid", BID: "also-bad"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed id, got %d", resp.Code)
	}
}

func TestUpdateEdgeLabel(t *testing.T) {
	router, eng, s := setupTest(t)
	aID, bID := seedPair(t, eng)

	edge, err := eng.CreateEdge(context.Background(), aID, bID, nil)
	if err != nil {
		t.Fatalf("Failed to create edge: %v", err)
	}

	label := "colleague"
	resp := doJSON(t, router, "PATCH", "/api/edges/"+edge.ID, UpdateEdgeRequest{Label: &label})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	got, err := s.GetEdge(edge.ID)
	if err != nil {
		t.Fatalf("Failed to fetch edge: %v", err)
	}
	if got.Label == nil || *got.Label != "colleague" {
		t.Errorf("Expected label 'colleague', got %v", got.Label)
	}
}

func TestUpdateEdgeNotFound(t *testing.T) {
	router, _, _ := setupTest(t)

	label := "x"
	resp := doJSON(t, router, "PATCH", "/api/edges/nonexistent", UpdateEdgeRequest{Label: &label})
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestDeleteEdge(t *testing.T) {
	router, eng, _ := setupTest(t)
	aID, bID := seedPair(t, eng)

	edge, err := eng.CreateEdge(context.Background(), aID, bID, nil)
	if err != nil {
		t.Fatalf("Failed to create edge: %v", err)
	}

	resp := doJSON(t, router, "DELETE", "/api/edges/"+edge.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, router, "DELETE", "/api/edges/"+edge.ID, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on double delete, got %d", resp.Code)
	}
}
