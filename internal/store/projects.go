package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/origincreativegroup/folio/internal/apperr"
	"github.com/origincreativegroup/folio/internal/metadata"
	"github.com/origincreativegroup/folio/internal/models"
)

const projectCols = `id, folder, slug, title, summary, organization, work_type, year, role, seniority,
	categories, skills, tools, tags, highlights, links, nda, cover_image, case_study, pcsi,
	metadata_path, narrative_path, narrative, metadata_checksum, narrative_checksum,
	sync_status, fs_modified_at, last_synced_at, created_at, updated_at`

// FindByFolder returns the project record keyed by folder, or
// apperr.ErrNotFound.
func (db *DB) FindByFolder(folder string) (*ProjectRecord, error) {
	row := db.conn.QueryRow(`SELECT `+projectCols+` FROM projects WHERE folder = ?`, folder)
	r, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: project %q: %w", folder, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: find project: %w", err)
	}
	return r, nil
}

// CreateProject inserts a fresh snapshot as a new record with status clean
// and returns its id.
func (db *DB) CreateProject(p *models.Project, syncedAt time.Time) (int64, error) {
	m := p.Metadata
	res, err := db.conn.Exec(`
		INSERT INTO projects (
			folder, slug, title, summary, organization, work_type, year, role, seniority,
			categories, skills, tools, tags, highlights, links, nda, cover_image, case_study, pcsi,
			metadata_path, narrative_path, narrative, metadata_checksum, narrative_checksum,
			sync_status, fs_modified_at, last_synced_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Folder, p.Slug, m.Title, m.Summary, m.Organization, m.WorkType, yearValue(m.Year), m.Role, m.Seniority,
		jsonText(m.Categories), jsonText(m.Skills), jsonText(m.Tools), jsonText(m.Tags), jsonText(m.Highlights),
		jsonText(m.Links), boolInt(m.NDA), m.CoverImage, jsonText(m.CaseStudy), jsonText(m.PCSI),
		p.MetadataPath, p.NarrativePath, p.Narrative, p.MetadataChecksum, p.NarrativeChecksum,
		models.StatusClean, p.ModifiedAt, syncedAt, syncedAt, syncedAt)
	if err != nil {
		return 0, fmt.Errorf("store: create project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create project id: %w", err)
	}
	return id, nil
}

// UpdateProject overwrites every descriptive field of an existing record
// from a fresh snapshot. The filesystem is authoritative during a sync, so
// nothing store-side survives except identity and created_at.
func (db *DB) UpdateProject(id int64, p *models.Project, status string, syncedAt time.Time) error {
	m := p.Metadata
	_, err := db.conn.Exec(`
		UPDATE projects SET
			slug = ?, title = ?, summary = ?, organization = ?, work_type = ?, year = ?, role = ?, seniority = ?,
			categories = ?, skills = ?, tools = ?, tags = ?, highlights = ?, links = ?, nda = ?, cover_image = ?,
			case_study = ?, pcsi = ?,
			metadata_path = ?, narrative_path = ?, narrative = ?, metadata_checksum = ?, narrative_checksum = ?,
			sync_status = ?, fs_modified_at = ?, last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, p.Slug, m.Title, m.Summary, m.Organization, m.WorkType, yearValue(m.Year), m.Role, m.Seniority,
		jsonText(m.Categories), jsonText(m.Skills), jsonText(m.Tools), jsonText(m.Tags), jsonText(m.Highlights),
		jsonText(m.Links), boolInt(m.NDA), m.CoverImage, jsonText(m.CaseStudy), jsonText(m.PCSI),
		p.MetadataPath, p.NarrativePath, p.Narrative, p.MetadataChecksum, p.NarrativeChecksum,
		status, p.ModifiedAt, syncedAt, syncedAt, id)
	if err != nil {
		return fmt.Errorf("store: update project: %w", err)
	}
	return nil
}

// ListProjects returns a page of records plus the unpaged total.
func (db *DB) ListProjects(opts ListOptions) ([]ProjectRecord, int, error) {
	where := `1=1`
	args := []any{}
	if opts.Status != "" {
		where += ` AND sync_status = ?`
		args = append(args, opts.Status)
	}
	if opts.Query != "" {
		where += ` AND (title LIKE ? OR summary LIKE ? OR organization LIKE ? OR folder LIKE ?)`
		q := "%" + opts.Query + "%"
		args = append(args, q, q, q, q)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM projects WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count projects: %w", err)
	}

	order := `folder ASC`
	switch opts.Sort {
	case "modified":
		order = `fs_modified_at DESC`
	case "title":
		order = `title COLLATE NOCASE ASC`
	}

	query := `SELECT ` + projectCols + ` FROM projects WHERE ` + where + ` ORDER BY ` + order
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectRecord{}
	for rows.Next() {
		r, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: scan project: %w", err)
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// UpdateProjectMetadata applies a direct metadata edit in one statement:
// descriptive fields, checksum, and clean status move together.
func (db *DB) UpdateProjectMetadata(id int64, m metadata.ParsedMetadata, slug, checksum string, modifiedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE projects SET
			slug = ?, title = ?, summary = ?, organization = ?, work_type = ?, year = ?, role = ?, seniority = ?,
			categories = ?, skills = ?, tools = ?, tags = ?, highlights = ?, links = ?, nda = ?, cover_image = ?,
			case_study = ?, pcsi = ?,
			metadata_checksum = ?, sync_status = ?, fs_modified_at = ?, last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, slug, m.Title, m.Summary, m.Organization, m.WorkType, yearValue(m.Year), m.Role, m.Seniority,
		jsonText(m.Categories), jsonText(m.Skills), jsonText(m.Tools), jsonText(m.Tags), jsonText(m.Highlights),
		jsonText(m.Links), boolInt(m.NDA), m.CoverImage, jsonText(m.CaseStudy), jsonText(m.PCSI),
		checksum, models.StatusClean, modifiedAt, modifiedAt, modifiedAt, id)
	if err != nil {
		return fmt.Errorf("store: update metadata: %w", err)
	}
	return nil
}

// UpdateProjectNarrative applies a direct narrative edit in one statement.
// narrativePath may move from empty to a concrete name on first write.
func (db *DB) UpdateProjectNarrative(id int64, narrative, narrativePath, checksum string, modifiedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE projects SET
			narrative = ?, narrative_path = ?, narrative_checksum = ?,
			sync_status = ?, fs_modified_at = ?, last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, narrative, narrativePath, checksum, models.StatusClean, modifiedAt, modifiedAt, modifiedAt, id)
	if err != nil {
		return fmt.Errorf("store: update narrative: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*ProjectRecord, error) {
	var (
		r                                                                   ProjectRecord
		year                                                                sql.NullInt64
		nda                                                                 int64
		categories, skills, tools, tags, highlights, links, caseStudy, pcsi string
		fsMod, lastSync                                                     sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.Folder, &r.Slug,
		&r.Meta.Title, &r.Meta.Summary, &r.Meta.Organization, &r.Meta.WorkType,
		&year, &r.Meta.Role, &r.Meta.Seniority,
		&categories, &skills, &tools, &tags, &highlights, &links,
		&nda, &r.Meta.CoverImage, &caseStudy, &pcsi,
		&r.MetadataPath, &r.NarrativePath, &r.Narrative,
		&r.MetadataChecksum, &r.NarrativeChecksum,
		&r.SyncStatus, &fsMod, &lastSync, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		r.Meta.Year = &y
	}
	r.Meta.NDA = nda != 0
	r.Meta.Categories = stringsFromJSON(categories)
	r.Meta.Skills = stringsFromJSON(skills)
	r.Meta.Tools = stringsFromJSON(tools)
	r.Meta.Tags = stringsFromJSON(tags)
	r.Meta.Highlights = stringsFromJSON(highlights)
	r.Meta.Links = linksFromJSON(links)
	_ = json.Unmarshal([]byte(caseStudy), &r.Meta.CaseStudy)
	_ = json.Unmarshal([]byte(pcsi), &r.Meta.PCSI)
	if fsMod.Valid {
		r.FSModifiedAt = fsMod.Time
	}
	if lastSync.Valid {
		r.LastSyncedAt = lastSync.Time
	}
	return &r, nil
}

func jsonText(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func stringsFromJSON(s string) []string {
	out := []string{}
	_ = json.Unmarshal([]byte(s), &out)
	if out == nil {
		out = []string{}
	}
	return out
}

func linksFromJSON(s string) []metadata.Link {
	out := []metadata.Link{}
	_ = json.Unmarshal([]byte(s), &out)
	if out == nil {
		out = []metadata.Link{}
	}
	return out
}

func yearValue(y *int) any {
	if y == nil {
		return nil
	}
	return *y
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
