package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/origincreativegroup/folio/internal/archive"
	"github.com/origincreativegroup/folio/internal/projectservice"
	"github.com/origincreativegroup/folio/internal/scanner"
	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/syncer"
	"github.com/origincreativegroup/folio/internal/testutil"
)

// fakeRunner stands in for the external archive tools so import and
// export round-trip without real binaries.
type fakeRunner struct {
	unzipped map[string]string
	zipBytes []byte
}

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	switch name {
	case "unzip":
		dest := args[len(args)-1]
		for rel, content := range f.unzipped {
			path := filepath.Join(dest, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "rsync":
		src := filepath.Clean(args[len(args)-2])
		dest := filepath.Clean(args[len(args)-1])
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return nil, err
		}
		return nil, os.CopyFS(dest, os.DirFS(src))
	case "zip":
		return nil, os.WriteFile(args[len(args)-2], f.zipBytes, 0o644)
	default:
		return nil, errors.New("unexpected tool " + name)
	}
}

// testEnv sets up a temp studio, SQLite DB, service, and router.
// authToken="" means auth disabled; non-empty means token mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()
	router, root, _ := testEnvFull(t, authToken != "", authToken, nil, &fakeRunner{zipBytes: []byte("zip-payload")})
	return router, root
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler, runner archive.Runner) (http.Handler, string, *store.DB) {
	t.Helper()

	root, dir := testutil.TestStudio(t)
	db := testutil.TestDB(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sy := syncer.New(dir, scanner.New(dir, nil), db, logger, nil)
	bridge := archive.New(dir, db, sy, runner, logger, archive.DefaultTools())
	svc := projectservice.NewService(db, sy, bridge)
	router := NewRouter(svc, authEnabled, authToken, sseHandler, dir)
	return router, root, db
}

// seedProject lays a project folder down in the studio.
func seedProject(t *testing.T, root, folder, title string) {
	t.Helper()
	for _, d := range []string{"03_Assets", "06_Exports"} {
		if err := os.MkdirAll(filepath.Join(root, folder, d), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	files := map[string]string{
		"02_Metadata.json":    `{"title": "` + title + `", "organization": "Acme Co"}`,
		"01_Narrative.md":     "# " + title + "\n",
		"03_Assets/hero.png":  "png-bytes",
		"06_Exports/deck.pdf": "pdf-bytes",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(root, folder, filepath.FromSlash(rel)), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
}

func doRequest(t *testing.T, router http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func syncProject(t *testing.T, router http.Handler, folder string) {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/projects/"+folder+"/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync %s = %d, body = %s", folder, w.Code, w.Body.String())
	}
}

func getDetail(t *testing.T, router http.Handler, folder string) ProjectDetail {
	t.Helper()
	w := doRequest(t, router, http.MethodGet, "/projects/"+folder, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get %s = %d, body = %s", folder, w.Code, w.Body.String())
	}
	var detail ProjectDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	return detail
}

func TestSyncAndGetProject(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "brand-refresh", "Brand Refresh")

	w := doRequest(t, router, http.MethodPost, "/projects/brand-refresh/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync status = %d, body = %s", w.Code, w.Body.String())
	}
	var res SyncResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Created {
		t.Error("first sync should report created")
	}

	detail := getDetail(t, router, "brand-refresh")
	if detail.Folder != "brand-refresh" {
		t.Errorf("folder = %q", detail.Folder)
	}
	if detail.Slug != "brand-refresh" {
		t.Errorf("slug = %q", detail.Slug)
	}
	if detail.Metadata.Title != "Brand Refresh" {
		t.Errorf("title = %q, want Brand Refresh", detail.Metadata.Title)
	}
	if len(detail.Assets) != 1 || detail.Assets[0].RelPath != "03_Assets/hero.png" {
		t.Errorf("assets = %+v", detail.Assets)
	}
	if len(detail.Deliverables) != 1 {
		t.Errorf("deliverables = %+v", detail.Deliverables)
	}
	if detail.SyncStatus != "clean" {
		t.Errorf("sync_status = %q, want clean", detail.SyncStatus)
	}
}

func TestSyncProject_SecondRunNotCreated(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Alpha")
	syncProject(t, router, "alpha")

	w := doRequest(t, router, http.MethodPost, "/projects/alpha/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second sync = %d", w.Code)
	}
	var res SyncResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Created {
		t.Error("second sync should not report created")
	}
}

func TestSyncProject_NoSuchFolder(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doRequest(t, router, http.MethodPost, "/projects/ghost/sync", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("sync missing folder = %d, want 404", w.Code)
	}
}

func TestSyncProject_MissingMetadata(t *testing.T) {
	router, root := testEnv(t, "")
	if err := os.MkdirAll(filepath.Join(root, "bare"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, router, http.MethodPost, "/projects/bare/sync", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("sync without metadata = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "02_Metadata.json") {
		t.Errorf("body should name metadata candidates, got %s", w.Body.String())
	}
}

func TestSyncProject_MalformedMetadata(t *testing.T) {
	router, root := testEnv(t, "")
	if err := os.MkdirAll(filepath.Join(root, "broken"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "broken", "metadata.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, router, http.MethodPost, "/projects/broken/sync", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("sync malformed metadata = %d, want 422", w.Code)
	}
}

func TestListProjects(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Alpha")
	seedProject(t, root, "beta", "Beta")
	syncProject(t, router, "alpha")
	syncProject(t, router, "beta")

	w := doRequest(t, router, http.MethodGet, "/projects?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp struct {
		Projects []ProjectListItem `json:"projects"`
		Total    int               `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Projects) != 2 {
		t.Fatalf("total = %d, len = %d, want 2/2", resp.Total, len(resp.Projects))
	}
	if resp.Projects[0].Folder != "alpha" {
		t.Errorf("first folder = %q, want alpha", resp.Projects[0].Folder)
	}
	if resp.Projects[0].Title != "Alpha" {
		t.Errorf("first title = %q", resp.Projects[0].Title)
	}
}

func TestListProjects_QueryFilter(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Brand Refresh")
	seedProject(t, root, "beta", "App Launch")
	syncProject(t, router, "alpha")
	syncProject(t, router, "beta")

	w := doRequest(t, router, http.MethodGet, "/projects?q=brand", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp struct {
		Projects []ProjectListItem `json:"projects"`
		Total    int               `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Projects[0].Folder != "alpha" {
		t.Errorf("filtered = %+v", resp)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doRequest(t, router, http.MethodGet, "/projects/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing project = %d, want 404", w.Code)
	}
}

func TestSyncAll(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Alpha")
	seedProject(t, root, "beta", "Beta")

	w := doRequest(t, router, http.MethodPost, "/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync all = %d, body = %s", w.Code, w.Body.String())
	}
	var summary SyncSummary
	_ = json.Unmarshal(w.Body.Bytes(), &summary)
	if summary.Scanned != 2 || summary.Created != 2 {
		t.Errorf("summary = %+v, want 2 scanned, 2 created", summary)
	}
}

func TestUpdateMetadataWithOptimisticLocking(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "lock", "Original")
	syncProject(t, router, "lock")
	detail := getDetail(t, router, "lock")

	// Update with the current checksum.
	body := []byte(`{"title": "Retitled", "organization": "Acme Co"}`)
	req := httptest.NewRequest(http.MethodPut, "/projects/lock/metadata", bytes.NewReader(body))
	req.Header.Set("If-Match", detail.MetadataChecksum)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}
	var updated ProjectDetail
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Metadata.Title != "Retitled" {
		t.Errorf("title = %q, want Retitled", updated.Metadata.Title)
	}
	if updated.Slug != "retitled" {
		t.Errorf("slug = %q, want retitled", updated.Slug)
	}

	// Same checksum again is stale now.
	req = httptest.NewRequest(http.MethodPut, "/projects/lock/metadata", bytes.NewReader(body))
	req.Header.Set("If-Match", detail.MetadataChecksum)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("update with stale checksum = %d, want 409", w.Code)
	}
	var conflict ConflictResponse
	_ = json.Unmarshal(w.Body.Bytes(), &conflict)
	if conflict.Field != "metadata" {
		t.Errorf("conflict field = %q", conflict.Field)
	}
	if conflict.ExpectedChecksum != detail.MetadataChecksum {
		t.Errorf("expected_checksum = %q, want the stale one", conflict.ExpectedChecksum)
	}
	if conflict.ActualChecksum == "" || conflict.ActualChecksum == conflict.ExpectedChecksum {
		t.Errorf("actual_checksum = %q, want current store checksum", conflict.ActualChecksum)
	}
}

func TestUpdateMetadata_WithoutIfMatch(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "nolock", "Original")
	syncProject(t, router, "nolock")

	body := []byte(`{"title": "Freely Edited"}`)
	w := doRequest(t, router, http.MethodPut, "/projects/nolock/metadata", body)
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestUpdateMetadata_RewritesFileOnDisk(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "disk", "Original")
	syncProject(t, router, "disk")

	w := doRequest(t, router, http.MethodPut, "/projects/disk/metadata", []byte(`{"title": "From API"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d", w.Code)
	}
	data, err := os.ReadFile(filepath.Join(root, "disk", "02_Metadata.json"))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if !strings.Contains(string(data), `"title": "From API"`) {
		t.Errorf("file not rewritten, got %s", data)
	}
}

func TestUpdateMetadata_InvalidBody(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "bad", "Original")
	syncProject(t, router, "bad")

	w := doRequest(t, router, http.MethodPut, "/projects/bad/metadata", []byte(`[1, 2, 3]`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid body = %d, want 400", w.Code)
	}
}

func TestUpdateMetadata_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doRequest(t, router, http.MethodPut, "/projects/ghost/metadata", []byte(`{"title": "X"}`))
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestUpdateNarrative(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "story", "Story")
	syncProject(t, router, "story")
	detail := getDetail(t, router, "story")

	body, _ := json.Marshal(map[string]string{"content": "# Story\nRewritten.\n"})
	req := httptest.NewRequest(http.MethodPut, "/projects/story/narrative", bytes.NewReader(body))
	req.Header.Set("If-Match", detail.NarrativeChecksum)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update narrative = %d, body = %s", w.Code, w.Body.String())
	}

	data, err := os.ReadFile(filepath.Join(root, "story", "01_Narrative.md"))
	if err != nil {
		t.Fatalf("read narrative: %v", err)
	}
	if string(data) != "# Story\nRewritten.\n" {
		t.Errorf("narrative on disk = %q", data)
	}

	// Stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, "/projects/story/narrative", bytes.NewReader(body))
	req.Header.Set("If-Match", detail.NarrativeChecksum)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("stale narrative update = %d, want 409", w.Code)
	}
}

func TestUpdateNarrative_MissingContent(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "story", "Story")
	syncProject(t, router, "story")

	w := doRequest(t, router, http.MethodPut, "/projects/story/narrative", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content = %d, want 400", w.Code)
	}
}

func TestImportArchive(t *testing.T) {
	runner := &fakeRunner{unzipped: map[string]string{
		"imported/02_Metadata.json":   `{"title": "Imported"}`,
		"imported/03_Assets/shot.png": "png",
	}}
	router, _, _ := testEnvFull(t, false, "", nil, runner)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "bundle.zip")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("zip-upload"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/archives/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Imports) != 1 || resp.Imports[0].Folder != "imported" {
		t.Fatalf("imports = %+v", resp.Imports)
	}
	if resp.Imports[0].Error != "" {
		t.Errorf("import error = %q", resp.Imports[0].Error)
	}

	detail := getDetail(t, router, "imported")
	if detail.Metadata.Title != "Imported" {
		t.Errorf("title = %q, want Imported", detail.Metadata.Title)
	}
}

func TestImportArchive_MissingFileField(t *testing.T) {
	router, _ := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/archives/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestExportProject(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Alpha")
	syncProject(t, router, "alpha")

	w := doRequest(t, router, http.MethodGet, "/projects/alpha/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "alpha.zip") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.String() != "zip-payload" {
		t.Errorf("body = %q, want zip payload", w.Body.String())
	}
}

func TestExportProject_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doRequest(t, router, http.MethodGet, "/projects/ghost/export", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("export missing = %d, want 404", w.Code)
	}
}

func TestServeProjectFile(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Alpha")

	w := doRequest(t, router, http.MethodGet, "/projects/alpha/files/03_Assets/hero.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("serve file = %d", w.Code)
	}
	if w.Body.String() != "png-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestServeProjectFile_NotFound(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Alpha")

	w := doRequest(t, router, http.MethodGet, "/projects/alpha/files/03_Assets/nope.png", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
}

func TestServeProjectFile_TraversalBlocked(t *testing.T) {
	router, root := testEnv(t, "")
	seedProject(t, root, "alpha", "Alpha")
	secret := filepath.Join(filepath.Dir(root), "secret.txt")
	if err := os.WriteFile(secret, []byte("keep out"), 0o644); err == nil {
		defer os.Remove(secret)
	}

	for _, target := range []string{
		"/projects/alpha/files/..%2F..%2Fsecret.txt",
		"/projects/alpha/files/%2e%2e/%2e%2e/secret.txt",
	} {
		w := doRequest(t, router, http.MethodGet, target, nil)
		if w.Code == http.StatusOK && w.Body.String() == "keep out" {
			t.Errorf("traversal %q served file outside studio", target)
		}
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, root := testEnv(t, "secret123")
	seedProject(t, root, "auth", "Auth")

	req := httptest.NewRequest(http.MethodPost, "/projects/auth/sync", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed sync = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")

	w := doRequest(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doRequest(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	router, _, _ := testEnvFull(t, authEnabled, token, sseHandler, &fakeRunner{})
	return router
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	w := doRequest(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
