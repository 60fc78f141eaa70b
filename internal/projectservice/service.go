package projectservice

import (
	"context"
	"time"

	"github.com/origincreativegroup/folio/internal/archive"
	"github.com/origincreativegroup/folio/internal/metadata"
	"github.com/origincreativegroup/folio/internal/models"
	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/syncer"
)

// ProjectDetail is the full representation of a project.
type ProjectDetail struct {
	ID                int64                   `json:"id"`
	Folder            string                  `json:"folder"`
	Slug              string                  `json:"slug"`
	Metadata          metadata.ParsedMetadata `json:"metadata"`
	MetadataPath      string                  `json:"metadata_path"`
	MetadataChecksum  string                  `json:"metadata_checksum"`
	Narrative         string                  `json:"narrative"`
	NarrativePath     string                  `json:"narrative_path,omitempty"`
	NarrativeChecksum string                  `json:"narrative_checksum,omitempty"`
	SyncStatus        string                  `json:"sync_status"`
	Assets            []models.Asset          `json:"assets"`
	Deliverables      []models.Deliverable    `json:"deliverables"`
	FSModifiedAt      time.Time               `json:"fs_modified_at"`
	LastSyncedAt      time.Time               `json:"last_synced_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// ProjectListItem is a lightweight item in a list response.
type ProjectListItem struct {
	ID           int64     `json:"id"`
	Folder       string    `json:"folder"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	Organization string    `json:"organization,omitempty"`
	WorkType     string    `json:"work_type,omitempty"`
	Year         *int      `json:"year,omitempty"`
	NDA          bool      `json:"nda"`
	CoverImage   string    `json:"cover_image,omitempty"`
	SyncStatus   string    `json:"sync_status"`
	FSModifiedAt time.Time `json:"fs_modified_at"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// Service coordinates store, syncer and archive operations.
type Service struct {
	store  store.Store
	sync   *syncer.Syncer
	bridge *archive.Bridge
}

// NewService creates a new project service.
func NewService(st store.Store, sy *syncer.Syncer, bridge *archive.Bridge) *Service {
	return &Service{store: st, sync: sy, bridge: bridge}
}

// Get returns the stored snapshot of one project with its children.
func (s *Service) Get(_ context.Context, folder string) (*ProjectDetail, error) {
	rec, err := s.store.FindByFolder(folder)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(rec)
}

// List returns paginated projects with optional status filter and query.
func (s *Service) List(_ context.Context, opts store.ListOptions) ([]ProjectListItem, int, error) {
	rows, total, err := s.store.ListProjects(opts)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ProjectListItem, len(rows))
	for i, r := range rows {
		items[i] = ProjectListItem{
			ID:           r.ID,
			Folder:       r.Folder,
			Slug:         r.Slug,
			Title:        r.Meta.Title,
			Summary:      r.Meta.Summary,
			Organization: r.Meta.Organization,
			WorkType:     r.Meta.WorkType,
			Year:         r.Meta.Year,
			NDA:          r.Meta.NDA,
			CoverImage:   r.Meta.CoverImage,
			SyncStatus:   r.SyncStatus,
			FSModifiedAt: r.FSModifiedAt,
			LastSyncedAt: r.LastSyncedAt,
		}
	}
	return items, total, nil
}

// Sync rescans one project folder and reconciles the store.
func (s *Service) Sync(_ context.Context, folder string) (*syncer.Result, error) {
	return s.sync.SyncProject(folder)
}

// SyncAll sweeps every project folder in the studio.
func (s *Service) SyncAll(_ context.Context) (*syncer.Summary, error) {
	return s.sync.SyncAll()
}

// UpdateMetadata writes edited metadata back to disk with optimistic
// concurrency and returns the refreshed project.
func (s *Service) UpdateMetadata(ctx context.Context, folder string, meta metadata.ParsedMetadata, ifMatch string) (*ProjectDetail, error) {
	if err := s.sync.UpdateMetadata(folder, meta, ifMatch); err != nil {
		return nil, err
	}
	return s.Get(ctx, folder)
}

// UpdateNarrative writes an edited narrative back to disk with optimistic
// concurrency and returns the refreshed project.
func (s *Service) UpdateNarrative(ctx context.Context, folder, narrative, ifMatch string) (*ProjectDetail, error) {
	if err := s.sync.UpdateNarrative(folder, narrative, ifMatch); err != nil {
		return nil, err
	}
	return s.Get(ctx, folder)
}

// Import unpacks an uploaded archive into the studio and syncs the
// projects it contained.
func (s *Service) Import(ctx context.Context, zipData []byte) ([]archive.ProjectImport, error) {
	return s.bridge.Import(ctx, zipData)
}

// Export packs one project folder into a zip archive.
func (s *Service) Export(ctx context.Context, folder string) ([]byte, string, error) {
	return s.bridge.Export(ctx, folder)
}

// buildDetail loads children and assembles a ProjectDetail.
func (s *Service) buildDetail(rec *store.ProjectRecord) (*ProjectDetail, error) {
	assets, err := s.store.ListAssets(rec.ID)
	if err != nil {
		return nil, err
	}
	deliverables, err := s.store.ListDeliverables(rec.ID)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{
		ID:                rec.ID,
		Folder:            rec.Folder,
		Slug:              rec.Slug,
		Metadata:          rec.Meta,
		MetadataPath:      rec.MetadataPath,
		MetadataChecksum:  rec.MetadataChecksum,
		Narrative:         rec.Narrative,
		NarrativePath:     rec.NarrativePath,
		NarrativeChecksum: rec.NarrativeChecksum,
		SyncStatus:        rec.SyncStatus,
		Assets:            nonNilSlice(assets),
		Deliverables:      nonNilSlice(deliverables),
		FSModifiedAt:      rec.FSModifiedAt,
		LastSyncedAt:      rec.LastSyncedAt,
		UpdatedAt:         rec.UpdatedAt,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
