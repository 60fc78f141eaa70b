// Package models defines the domain types for Folio.
package models

import (
	"time"

	"github.com/origincreativegroup/folio/internal/metadata"
)

// Sync status values stored on a project record.
const (
	StatusClean     = "clean"
	StatusFSUpdated = "filesystem-updated"
)

// Asset is one file found under a project's asset directory.
type Asset struct {
	RelPath    string    `json:"relPath"`
	Label      string    `json:"label"`
	Kind       string    `json:"kind"` // image, video, audio, document, asset
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Deliverable is one file found under a project's deliverable directory.
type Deliverable struct {
	RelPath    string    `json:"relPath"`
	Label      string    `json:"label"`
	Format     string    `json:"format"` // lowercase extension, e.g. "pdf"
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Project is a full snapshot of one project directory, built fresh on every
// scan and discarded after persistence. RelPath values are relative to the
// project folder, so an unmoved file keeps its identity across scans.
type Project struct {
	Folder            string                  `json:"folder"`
	Slug              string                  `json:"slug"`
	MetadataPath      string                  `json:"metadataPath"`
	NarrativePath     string                  `json:"narrativePath,omitempty"`
	Metadata          metadata.ParsedMetadata `json:"metadata"`
	Narrative         string                  `json:"narrative,omitempty"`
	MetadataChecksum  string                  `json:"metadataChecksum"`
	NarrativeChecksum string                  `json:"narrativeChecksum,omitempty"`
	ModifiedAt        time.Time               `json:"modifiedAt"`
	Assets            []Asset                 `json:"assets"`
	Deliverables      []Deliverable           `json:"deliverables"`
}
