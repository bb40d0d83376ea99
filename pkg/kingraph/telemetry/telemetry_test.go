package telemetry

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(zap.NewNop()).RegisterRoutes(r.Group("/api"))
	return r
}

func TestIngest(t *testing.T) {
	router := setupTest()

	body := bytes.NewBufferString(`{"type":"node_moved","user":"u1"}`)
	req, _ := http.NewRequest("POST", "/api/telemetry", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestIngestMalformed(t *testing.T) {
	router := setupTest()

	req, _ := http.NewRequest("POST", "/api/telemetry", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}
