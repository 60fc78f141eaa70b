package api

import (
	"github.com/origincreativegroup/folio/internal/archive"
	"github.com/origincreativegroup/folio/internal/projectservice"
	"github.com/origincreativegroup/folio/internal/syncer"
)

// UpdateNarrativeRequest is the request body for updating a narrative.
type UpdateNarrativeRequest struct {
	Content string `json:"content" example:"# Case Study\nWhat we did." validate:"required"`
}

// ProjectDetail is the full project response type (aliased from the domain layer).
type ProjectDetail = projectservice.ProjectDetail

// ProjectListItem is a lightweight item in a list response (aliased from the domain layer).
type ProjectListItem = projectservice.ProjectListItem

// ProjectListResponse wraps paginated project listings.
type ProjectListResponse struct {
	Projects []ProjectListItem `json:"projects" validate:"required"`
	Total    int               `json:"total" example:"42" validate:"required"`
}

// SyncResult is the outcome of syncing one project (aliased from the domain layer).
type SyncResult = syncer.Result

// SyncSummary is the outcome of a full studio sweep (aliased from the domain layer).
type SyncSummary = syncer.Summary

// ImportResponse wraps per-folder archive import outcomes.
type ImportResponse struct {
	Imports []archive.ProjectImport `json:"imports" validate:"required"`
}

// ConflictResponse is returned when an If-Match checksum does not match
// the stored one.
type ConflictResponse struct {
	Error            string `json:"error" example:"metadata changed since it was last read" validate:"required"`
	Field            string `json:"field" example:"metadata" validate:"required"`
	ExpectedChecksum string `json:"expected_checksum" example:"abc123..."`
	ActualChecksum   string `json:"actual_checksum" example:"def456..."`
}
