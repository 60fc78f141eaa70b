package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/origincreativegroup/folio/internal/apperr"
	"github.com/origincreativegroup/folio/internal/metadata"
	"github.com/origincreativegroup/folio/internal/projectservice"
	"github.com/origincreativegroup/folio/internal/scanner"
	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/syncer"
)

const (
	maxEditBytes    = 10 << 20  // metadata and narrative bodies
	maxArchiveBytes = 512 << 20 // uploaded zip archives
)

// Handler holds API route handlers.
type Handler struct {
	svc *projectservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *projectservice.Service) *Handler {
	return &Handler{svc: svc}
}

// folderParam extracts the project folder name from the URL. Folder names
// may carry spaces or other characters that clients URL-encode.
func folderParam(r *http.Request) string {
	raw := chi.URLParam(r, "folder")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects with optional pagination and filtering
//	@Tags			projects
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			status	query		string	false	"Filter by sync status"	Enums(clean, filesystem-updated)
//	@Param			q		query		string	false	"Match against title, summary, organization or folder"
//	@Param			sort	query		string	false	"Sort field"	Enums(folder, title, modified)
//	@Success		200		{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), store.ListOptions{
		Limit:  limit,
		Offset: offset,
		Status: q.Get("status"),
		Query:  q.Get("q"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		slog.Error("list projects failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": items,
		"total":    total,
	})
}

// GetProject handles GET /api/projects/{folder}.
//
//	@Summary		Get a single project by folder name
//	@Tags			projects
//	@Produce		json
//	@Param			folder	path		string	true	"Project folder name"
//	@Success		200		{object}	ProjectDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{folder} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	folder := folderParam(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder is required"))
		return
	}
	detail, err := h.svc.Get(r.Context(), folder)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get project failed", slog.String("folder", folder), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateMetadata handles PUT /api/projects/{folder}/metadata.
//
// The body is the metadata document itself; legacy key spellings are
// accepted and the file is rewritten in canonical form.
//
//	@Summary		Update project metadata with optimistic concurrency
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			folder		path		string	true	"Project folder name"
//	@Param			If-Match	header		string	false	"SHA-256 checksum of the metadata last read"
//	@Param			body		body		object	true	"Metadata document"
//	@Success		200			{object}	ProjectDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	ConflictResponse
//	@Security		BearerAuth
//	@Router			/projects/{folder}/metadata [put]
func (h *Handler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEditBytes)
	folder := folderParam(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	meta, err := metadata.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid metadata document"))
		return
	}

	detail, err := h.svc.UpdateMetadata(r.Context(), folder, meta, ifMatchHeader(r))
	if err != nil {
		h.writeEditError(w, "update metadata", folder, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateNarrative handles PUT /api/projects/{folder}/narrative.
//
//	@Summary		Update the project narrative with optimistic concurrency
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			folder		path		string					true	"Project folder name"
//	@Param			If-Match	header		string					false	"SHA-256 checksum of the narrative last read"
//	@Param			body		body		UpdateNarrativeRequest	true	"Narrative content"
//	@Success		200			{object}	ProjectDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	ConflictResponse
//	@Security		BearerAuth
//	@Router			/projects/{folder}/narrative [put]
func (h *Handler) UpdateNarrative(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEditBytes)
	folder := folderParam(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder is required"))
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	detail, err := h.svc.UpdateNarrative(r.Context(), folder, req.Content, ifMatchHeader(r))
	if err != nil {
		h.writeEditError(w, "update narrative", folder, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// SyncProject handles POST /api/projects/{folder}/sync.
//
//	@Summary		Rescan one project folder and reconcile the catalog
//	@Tags			sync
//	@Produce		json
//	@Param			folder	path		string	true	"Project folder name"
//	@Success		200		{object}	SyncResult
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{folder}/sync [post]
func (h *Handler) SyncProject(w http.ResponseWriter, r *http.Request) {
	folder := folderParam(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder is required"))
		return
	}
	res, err := h.svc.Sync(r.Context(), folder)
	if err != nil {
		h.writeSyncError(w, folder, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SyncAll handles POST /api/sync.
//
//	@Summary		Sweep every project folder in the studio
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncSummary
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.SyncAll(r.Context())
	if err != nil {
		slog.Error("sync all failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ImportArchive handles POST /api/archives/import (multipart/form-data,
// field "file").
//
//	@Summary		Import project folders from a zip archive
//	@Tags			archives
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Zip archive of project folders"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archives/import [post]
func (h *Handler) ImportArchive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxArchiveBytes)

	if err := r.ParseMultipartForm(maxArchiveBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("archive too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	zipData, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read archive"))
		return
	}

	imports, err := h.svc.Import(r.Context(), zipData)
	if err != nil {
		slog.Error("import archive failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imports": imports,
	})
}

// ExportProject handles GET /api/projects/{folder}/export.
//
//	@Summary		Download one project folder as a zip archive
//	@Tags			archives
//	@Produce		application/zip
//	@Param			folder	path	string	true	"Project folder name"
//	@Success		200		{file}	binary
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{folder}/export [get]
func (h *Handler) ExportProject(w http.ResponseWriter, r *http.Request) {
	folder := folderParam(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder is required"))
		return
	}
	data, name, err := h.svc.Export(r.Context(), folder)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("export project failed", slog.String("folder", folder), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// ifMatchHeader returns the If-Match checksum with standard ETag quoting
// stripped.
func ifMatchHeader(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

// writeEditError maps metadata and narrative write failures to responses.
// Conflicts carry both checksums so clients can re-read and retry.
func (h *Handler) writeEditError(w http.ResponseWriter, op, folder string, err error) {
	var conflict *syncer.Conflict
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ConflictResponse{
			Error:            conflict.Error(),
			Field:            conflict.Field,
			ExpectedChecksum: conflict.ExpectedChecksum,
			ActualChecksum:   conflict.ActualChecksum,
		})
	default:
		slog.Error(op+" failed", slog.String("folder", folder), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// writeSyncError maps scan failures to responses. A folder that exists but
// cannot be cataloged is unprocessable, not missing.
func (h *Handler) writeSyncError(w http.ResponseWriter, folder string, err error) {
	var missing *scanner.MissingMetadataError
	switch {
	case errors.Is(err, apperr.ErrNoProject):
		writeJSON(w, http.StatusNotFound, errorBody("no such project folder"))
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(missing.Error()))
	case errors.Is(err, metadata.ErrMalformed):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error("sync project failed", slog.String("folder", folder), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
