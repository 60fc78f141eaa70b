package store

import (
	"time"

	"github.com/origincreativegroup/folio/internal/metadata"
	"github.com/origincreativegroup/folio/internal/models"
)

// ProjectRecord is one persisted project row, the only durable
// representation of a project. Folder is the external key.
type ProjectRecord struct {
	ID                int64
	Folder            string
	Slug              string
	Meta              metadata.ParsedMetadata
	MetadataPath      string
	NarrativePath     string
	Narrative         string
	MetadataChecksum  string
	NarrativeChecksum string
	SyncStatus        string
	FSModifiedAt      time.Time
	LastSyncedAt      time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ListOptions narrows and orders a project listing.
type ListOptions struct {
	Limit  int
	Offset int
	Status string // filter on sync_status when non-empty
	Query  string // substring match on title, summary, organization, folder
	Sort   string // "modified", "title", or "" for folder order
}

// Store is the persistence contract the sync orchestrator and services
// depend on. Consumers take the interface so the sync algorithm can be
// exercised against an in-memory fake.
type Store interface {
	FindByFolder(folder string) (*ProjectRecord, error)
	CreateProject(p *models.Project, syncedAt time.Time) (int64, error)
	UpdateProject(id int64, p *models.Project, status string, syncedAt time.Time) error
	ListProjects(opts ListOptions) ([]ProjectRecord, int, error)

	UpsertAsset(projectID int64, a models.Asset) error
	DeleteAssetsExcept(projectID int64, keep []string) error
	ListAssets(projectID int64) ([]models.Asset, error)
	UpsertDeliverable(projectID int64, d models.Deliverable) error
	DeleteDeliverablesExcept(projectID int64, keep []string) error
	ListDeliverables(projectID int64) ([]models.Deliverable, error)

	UpdateProjectMetadata(id int64, meta metadata.ParsedMetadata, slug, checksum string, modifiedAt time.Time) error
	UpdateProjectNarrative(id int64, narrative, narrativePath, checksum string, modifiedAt time.Time) error

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
