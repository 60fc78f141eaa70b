package store

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/origincreativegroup/folio/internal/apperr"
	"github.com/origincreativegroup/folio/internal/metadata"
	"github.com/origincreativegroup/folio/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func snapshot(folder string) *models.Project {
	year := 2024
	return &models.Project{
		Folder:        folder,
		Slug:          folder,
		MetadataPath:  "02_Metadata.json",
		NarrativePath: "01_Narrative.md",
		Metadata: metadata.ParsedMetadata{
			Title:        "Title " + folder,
			Summary:      "summary",
			Organization: "Acme Co",
			WorkType:     "branding",
			Year:         &year,
			Role:         "Lead",
			Seniority:    "senior",
			Categories:   []string{"identity"},
			Skills:       []string{},
			Tools:        []string{"figma"},
			Tags:         []string{"featured"},
			Highlights:   []string{},
			Links:        []metadata.Link{{Type: "live", URL: "https://a.example"}},
			NDA:          true,
			CoverImage:   "03_Assets/cover.png",
			PCSI:         metadata.PCSI{Problem: "p", Solution: "s"},
		},
		Narrative:         "the story",
		MetadataChecksum:  "mc-" + folder,
		NarrativeChecksum: "nc-" + folder,
		ModifiedAt:        time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
		Assets: []models.Asset{
			{RelPath: "03_Assets/hero.png", Label: "hero", Kind: "image", Size: 10, Checksum: "a1", ModifiedAt: time.Date(2025, 3, 4, 5, 0, 0, 0, time.UTC)},
		},
		Deliverables: []models.Deliverable{
			{RelPath: "06_Exports/deck.pdf", Label: "deck", Format: "pdf", Size: 20, Checksum: "d1", ModifiedAt: time.Date(2025, 3, 4, 5, 0, 0, 0, time.UTC)},
		},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"projects", "assets", "deliverables"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestCreateAndFind(t *testing.T) {
	db := testDB(t)
	p := snapshot("brand-refresh")
	now := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	id, err := db.CreateProject(p, now)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	r, err := db.FindByFolder("brand-refresh")
	if err != nil {
		t.Fatalf("FindByFolder: %v", err)
	}
	if r.ID != id || r.Folder != "brand-refresh" || r.Slug != "brand-refresh" {
		t.Errorf("record = %+v", r)
	}
	if !reflect.DeepEqual(r.Meta, p.Metadata) {
		t.Errorf("metadata mismatch:\n got %+v\nwant %+v", r.Meta, p.Metadata)
	}
	if r.MetadataChecksum != p.MetadataChecksum || r.NarrativeChecksum != p.NarrativeChecksum {
		t.Error("checksums not persisted")
	}
	if r.SyncStatus != models.StatusClean {
		t.Errorf("status = %q, want clean", r.SyncStatus)
	}
	if !r.FSModifiedAt.Equal(p.ModifiedAt) {
		t.Errorf("fs_modified_at = %v, want %v", r.FSModifiedAt, p.ModifiedAt)
	}
	if !r.LastSyncedAt.Equal(now) {
		t.Errorf("last_synced_at = %v, want %v", r.LastSyncedAt, now)
	}
}

func TestFindByFolder_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.FindByFolder("ghost")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateProjectOverwrites(t *testing.T) {
	db := testDB(t)
	p := snapshot("p")
	now := time.Now().UTC()
	id, _ := db.CreateProject(p, now)

	p.Metadata.Title = "Renamed"
	p.Slug = "renamed"
	p.MetadataChecksum = "mc-2"
	if err := db.UpdateProject(id, p, models.StatusFSUpdated, now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}

	r, err := db.FindByFolder("p")
	if err != nil {
		t.Fatalf("FindByFolder: %v", err)
	}
	if r.Meta.Title != "Renamed" || r.Slug != "renamed" || r.MetadataChecksum != "mc-2" {
		t.Errorf("record = %+v", r)
	}
	if r.SyncStatus != models.StatusFSUpdated {
		t.Errorf("status = %q, want filesystem-updated", r.SyncStatus)
	}
}

func TestListProjects(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()
	for _, folder := range []string{"alpha", "beta", "gamma"} {
		if _, err := db.CreateProject(snapshot(folder), now); err != nil {
			t.Fatalf("CreateProject %s: %v", folder, err)
		}
	}
	bid, _ := db.CreateProject(snapshot("delta"), now)
	_ = db.UpdateProject(bid, snapshot("delta"), models.StatusFSUpdated, now)

	all, total, err := db.ListProjects(ListOptions{})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if total != 4 || len(all) != 4 {
		t.Fatalf("total = %d len = %d, want 4", total, len(all))
	}
	if all[0].Folder != "alpha" || all[3].Folder != "gamma" {
		t.Errorf("default order = %v", []string{all[0].Folder, all[1].Folder, all[2].Folder, all[3].Folder})
	}

	page, total, err := db.ListProjects(ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListProjects paged: %v", err)
	}
	if total != 4 || len(page) != 2 || page[0].Folder != "delta" {
		t.Errorf("page = %+v total = %d", page, total)
	}

	dirty, _, err := db.ListProjects(ListOptions{Status: models.StatusFSUpdated})
	if err != nil {
		t.Fatalf("ListProjects status: %v", err)
	}
	if len(dirty) != 1 || dirty[0].Folder != "delta" {
		t.Errorf("dirty = %+v", dirty)
	}

	hits, _, err := db.ListProjects(ListOptions{Query: "Title beta"})
	if err != nil {
		t.Fatalf("ListProjects query: %v", err)
	}
	if len(hits) != 1 || hits[0].Folder != "beta" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestAssetUpsertAndPrune(t *testing.T) {
	db := testDB(t)
	id, _ := db.CreateProject(snapshot("p"), time.Now().UTC())

	a := models.Asset{RelPath: "03_Assets/a.png", Label: "a", Kind: "image", Size: 1, Checksum: "c1", ModifiedAt: time.Now().UTC()}
	if err := db.UpsertAsset(id, a); err != nil {
		t.Fatalf("UpsertAsset: %v", err)
	}
	b := models.Asset{RelPath: "03_Assets/b.png", Label: "b", Kind: "image", Size: 2, Checksum: "c2", ModifiedAt: time.Now().UTC()}
	_ = db.UpsertAsset(id, b)

	// Second upsert of the same path updates in place.
	a.Checksum = "c1-new"
	a.Size = 9
	if err := db.UpsertAsset(id, a); err != nil {
		t.Fatalf("UpsertAsset again: %v", err)
	}
	rows, err := db.ListAssets(id)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Checksum != "c1-new" || rows[0].Size != 9 {
		t.Errorf("rows[0] = %+v", rows[0])
	}

	if err := db.DeleteAssetsExcept(id, []string{"03_Assets/a.png"}); err != nil {
		t.Fatalf("DeleteAssetsExcept: %v", err)
	}
	rows, _ = db.ListAssets(id)
	if len(rows) != 1 || rows[0].RelPath != "03_Assets/a.png" {
		t.Errorf("after prune rows = %+v", rows)
	}

	if err := db.DeleteAssetsExcept(id, nil); err != nil {
		t.Fatalf("DeleteAssetsExcept empty: %v", err)
	}
	rows, _ = db.ListAssets(id)
	if len(rows) != 0 {
		t.Errorf("expected all pruned, got %+v", rows)
	}
}

func TestDeliverableUpsertAndPrune(t *testing.T) {
	db := testDB(t)
	id, _ := db.CreateProject(snapshot("p"), time.Now().UTC())

	d := models.Deliverable{RelPath: "06_Exports/deck.pdf", Label: "deck", Format: "pdf", Size: 5, Checksum: "d1", ModifiedAt: time.Now().UTC()}
	if err := db.UpsertDeliverable(id, d); err != nil {
		t.Fatalf("UpsertDeliverable: %v", err)
	}
	d.Format = "pdfx"
	_ = db.UpsertDeliverable(id, d)

	rows, err := db.ListDeliverables(id)
	if err != nil {
		t.Fatalf("ListDeliverables: %v", err)
	}
	if len(rows) != 1 || rows[0].Format != "pdfx" {
		t.Errorf("rows = %+v", rows)
	}

	if err := db.DeleteDeliverablesExcept(id, []string{"none"}); err != nil {
		t.Fatalf("DeleteDeliverablesExcept: %v", err)
	}
	rows, _ = db.ListDeliverables(id)
	if len(rows) != 0 {
		t.Errorf("expected prune, got %+v", rows)
	}
}

func TestChildrenScopedToProject(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()
	id1, _ := db.CreateProject(snapshot("one"), now)
	id2, _ := db.CreateProject(snapshot("two"), now)

	_ = db.UpsertAsset(id1, models.Asset{RelPath: "03_Assets/x.png", Kind: "image", ModifiedAt: now})
	_ = db.UpsertAsset(id2, models.Asset{RelPath: "03_Assets/x.png", Kind: "image", ModifiedAt: now})

	if err := db.DeleteAssetsExcept(id1, nil); err != nil {
		t.Fatalf("DeleteAssetsExcept: %v", err)
	}
	rows, _ := db.ListAssets(id2)
	if len(rows) != 1 {
		t.Errorf("sibling project rows pruned: %+v", rows)
	}
}

func TestUpdateProjectMetadata(t *testing.T) {
	db := testDB(t)
	id, _ := db.CreateProject(snapshot("p"), time.Now().UTC())
	_ = db.UpdateProject(id, snapshot("p"), models.StatusFSUpdated, time.Now().UTC())

	meta := snapshot("p").Metadata
	meta.Title = "Edited"
	ts := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := db.UpdateProjectMetadata(id, meta, "edited", "mc-edit", ts); err != nil {
		t.Fatalf("UpdateProjectMetadata: %v", err)
	}

	r, _ := db.FindByFolder("p")
	if r.Meta.Title != "Edited" || r.Slug != "edited" || r.MetadataChecksum != "mc-edit" {
		t.Errorf("record = %+v", r)
	}
	if r.SyncStatus != models.StatusClean {
		t.Errorf("status = %q, want clean after edit", r.SyncStatus)
	}
	if !r.FSModifiedAt.Equal(ts) {
		t.Errorf("fs_modified_at = %v, want %v", r.FSModifiedAt, ts)
	}
}

func TestUpdateProjectNarrative_FirstWriteSetsPath(t *testing.T) {
	db := testDB(t)
	p := snapshot("p")
	p.NarrativePath = ""
	p.Narrative = ""
	p.NarrativeChecksum = ""
	id, _ := db.CreateProject(p, time.Now().UTC())

	ts := time.Now().UTC()
	if err := db.UpdateProjectNarrative(id, "fresh words", "01_Narrative.md", "nc-1", ts); err != nil {
		t.Fatalf("UpdateProjectNarrative: %v", err)
	}
	r, _ := db.FindByFolder("p")
	if r.Narrative != "fresh words" || r.NarrativePath != "01_Narrative.md" || r.NarrativeChecksum != "nc-1" {
		t.Errorf("record = %+v", r)
	}
}
