package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hokan/hokan/internal/chunker"
	"github.com/hokan/hokan/internal/config"
	"github.com/hokan/hokan/internal/embedding"
	"github.com/hokan/hokan/internal/manager"
	"github.com/hokan/hokan/internal/models"
	"github.com/hokan/hokan/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *manager.Manager) {
	t.Helper()
	ch, err := chunker.New(500, 50)
	if err != nil {
		t.Fatal(err)
	}
	m := manager.New(memory.New(), embedding.NewMock(16), ch)
	cfg := &config.ServerConfig{Host: "localhost", Port: 0}
	return New(m, cfg, zap.NewNop()), m
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListCollectionsEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/collections", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["collections"] == nil || len(resp["collections"]) != 0 {
		t.Errorf("collections = %v, want empty array", resp["collections"])
	}
}

func TestIndexThenSearch(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeDoc(t, "Some searchable document content for the API test.")

	rec := doRequest(t, s, http.MethodPost, "/api/v1/collections/docs/documents", indexRequest{Paths: []string{path}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("index status = %d: %s", rec.Code, rec.Body.String())
	}
	var report models.IndexReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.FilesIndexed != 1 || report.ChunksAdded == 0 {
		t.Errorf("report = %+v", report)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/collections/docs/search", searchRequest{Query: "searchable content", K: 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Collection string                `json:"collection"`
		Results    []models.SearchResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Collection != "docs" || len(resp.Results) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Results[0].Chunk.Source != "doc.txt" {
		t.Errorf("source = %q", resp.Results[0].Chunk.Source)
	}
}

func TestSearchMissingCollectionReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/collections/ghost/search", searchRequest{Query: "anything"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSearchValidation(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/collections/docs/search", searchRequest{Query: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections/docs/search", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rec.Code)
	}
}

func TestIndexValidation(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/collections/docs/documents", indexRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty paths: status = %d, want 400", rec.Code)
	}
}

func TestCollectionInfoEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeDoc(t, "Content to be counted.")
	doRequest(t, s, http.MethodPost, "/api/v1/collections/docs/documents", indexRequest{Paths: []string{path}})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/collections/docs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var info models.CollectionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "docs" || info.TotalChunks != 1 || info.FileCount != 1 {
		t.Errorf("info = %+v", info)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/collections/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing collection: status = %d, want 404", rec.Code)
	}
}

func TestDeleteSourceEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeDoc(t, "Chunks to delete over HTTP.")
	doRequest(t, s, http.MethodPost, "/api/v1/collections/docs/documents", indexRequest{Paths: []string{path}})

	rec := doRequest(t, s, http.MethodDelete, "/api/v1/collections/docs/sources/doc.txt", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", resp.Deleted)
	}

	// Deleting again matches nothing but still succeeds.
	rec = doRequest(t, s, http.MethodDelete, "/api/v1/collections/docs/sources/doc.txt", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("second delete: status = %d", rec.Code)
	}
}

func TestNoClearOrDropRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeDoc(t, "Destructive ops must stay CLI-only.")
	doRequest(t, s, http.MethodPost, "/api/v1/collections/docs/documents", indexRequest{Paths: []string{path}})

	rec := doRequest(t, s, http.MethodDelete, "/api/v1/collections/docs", nil)
	if rec.Code != http.StatusMethodNotAllowed && rec.Code != http.StatusNotFound {
		t.Errorf("DELETE collection: status = %d, want 404/405", rec.Code)
	}
}
