package store

import (
	"fmt"
	"strings"

	"github.com/origincreativegroup/folio/internal/models"
)

// UpsertAsset inserts or updates one asset row keyed by (project, rel path).
func (db *DB) UpsertAsset(projectID int64, a models.Asset) error {
	_, err := db.conn.Exec(`
		INSERT INTO assets (project_id, rel_path, label, kind, size, checksum, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, rel_path) DO UPDATE SET
			label       = excluded.label,
			kind        = excluded.kind,
			size        = excluded.size,
			checksum    = excluded.checksum,
			modified_at = excluded.modified_at
	`, projectID, a.RelPath, a.Label, a.Kind, a.Size, a.Checksum, a.ModifiedAt)
	if err != nil {
		return fmt.Errorf("store: upsert asset %s: %w", a.RelPath, err)
	}
	return nil
}

// DeleteAssetsExcept removes every asset row of the project whose rel path
// is not in keep. An empty keep clears all of them.
func (db *DB) DeleteAssetsExcept(projectID int64, keep []string) error {
	query, args := deleteExcept("assets", projectID, keep)
	if _, err := db.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("store: prune assets: %w", err)
	}
	return nil
}

// ListAssets returns the project's asset rows ordered by rel path.
func (db *DB) ListAssets(projectID int64) ([]models.Asset, error) {
	rows, err := db.conn.Query(`
		SELECT rel_path, label, kind, size, checksum, modified_at
		FROM assets WHERE project_id = ? ORDER BY rel_path
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list assets: %w", err)
	}
	defer rows.Close()

	out := []models.Asset{}
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.RelPath, &a.Label, &a.Kind, &a.Size, &a.Checksum, &a.ModifiedAt); err != nil {
			return nil, fmt.Errorf("store: scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertDeliverable inserts or updates one deliverable row keyed by
// (project, rel path).
func (db *DB) UpsertDeliverable(projectID int64, d models.Deliverable) error {
	_, err := db.conn.Exec(`
		INSERT INTO deliverables (project_id, rel_path, label, format, size, checksum, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, rel_path) DO UPDATE SET
			label       = excluded.label,
			format      = excluded.format,
			size        = excluded.size,
			checksum    = excluded.checksum,
			modified_at = excluded.modified_at
	`, projectID, d.RelPath, d.Label, d.Format, d.Size, d.Checksum, d.ModifiedAt)
	if err != nil {
		return fmt.Errorf("store: upsert deliverable %s: %w", d.RelPath, err)
	}
	return nil
}

// DeleteDeliverablesExcept removes every deliverable row of the project
// whose rel path is not in keep.
func (db *DB) DeleteDeliverablesExcept(projectID int64, keep []string) error {
	query, args := deleteExcept("deliverables", projectID, keep)
	if _, err := db.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("store: prune deliverables: %w", err)
	}
	return nil
}

// ListDeliverables returns the project's deliverable rows ordered by rel path.
func (db *DB) ListDeliverables(projectID int64) ([]models.Deliverable, error) {
	rows, err := db.conn.Query(`
		SELECT rel_path, label, format, size, checksum, modified_at
		FROM deliverables WHERE project_id = ? ORDER BY rel_path
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list deliverables: %w", err)
	}
	defer rows.Close()

	out := []models.Deliverable{}
	for rows.Next() {
		var d models.Deliverable
		if err := rows.Scan(&d.RelPath, &d.Label, &d.Format, &d.Size, &d.Checksum, &d.ModifiedAt); err != nil {
			return nil, fmt.Errorf("store: scan deliverable: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// deleteExcept builds the prune statement for one child table.
func deleteExcept(table string, projectID int64, keep []string) (string, []any) {
	if len(keep) == 0 {
		return `DELETE FROM ` + table + ` WHERE project_id = ?`, []any{projectID}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
	args := make([]any, 0, len(keep)+1)
	args = append(args, projectID)
	for _, p := range keep {
		args = append(args, p)
	}
	return `DELETE FROM ` + table + ` WHERE project_id = ? AND rel_path NOT IN (` + placeholders + `)`, args
}
