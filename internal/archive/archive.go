// Package archive moves whole project folders in and out of the studio as
// zip files. Unpacking, copying and packing are delegated to external
// tools (unzip, rsync, zip by default) so the bridge stays byte-faithful
// to what those tools produce; which binaries run is configurable.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/studio"
	"github.com/origincreativegroup/folio/internal/syncer"
)

// Tools names the external binaries the bridge shells out to.
type Tools struct {
	Unzip string
	Copy  string
	Zip   string
}

// DefaultTools returns the conventional tool set.
func DefaultTools() Tools {
	return Tools{Unzip: "unzip", Copy: "rsync", Zip: "zip"}
}

// ProjectImport is the outcome of importing one folder from an archive.
// Error is set when copying or syncing that folder failed; the other
// folders in the archive are still processed.
type ProjectImport struct {
	Folder string         `json:"folder"`
	Result *syncer.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Bridge imports and exports project archives.
type Bridge struct {
	dir    *studio.Dir
	store  store.Store
	sync   *syncer.Syncer
	runner Runner
	logger *slog.Logger
	tools  Tools
}

func New(dir *studio.Dir, st store.Store, sy *syncer.Syncer, runner Runner, logger *slog.Logger, tools Tools) *Bridge {
	if tools.Unzip == "" {
		tools.Unzip = DefaultTools().Unzip
	}
	if tools.Copy == "" {
		tools.Copy = DefaultTools().Copy
	}
	if tools.Zip == "" {
		tools.Zip = DefaultTools().Zip
	}
	return &Bridge{dir: dir, store: st, sync: sy, runner: runner, logger: logger, tools: tools}
}

// Import unpacks a zip archive into a scratch directory, copies every
// top-level folder it contains into the studio and syncs each one. The
// scratch directory is removed on every exit path.
func (b *Bridge) Import(ctx context.Context, zipData []byte) ([]ProjectImport, error) {
	scratch, err := os.MkdirTemp("", "folio-import-")
	if err != nil {
		return nil, fmt.Errorf("archive: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	zipPath := filepath.Join(scratch, "import.zip")
	if err := os.WriteFile(zipPath, zipData, 0o644); err != nil {
		return nil, fmt.Errorf("archive: write upload: %w", err)
	}

	extractDir := filepath.Join(scratch, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: scratch dir: %w", err)
	}
	if _, err := b.runner.Run(ctx, scratch, b.tools.Unzip, "-q", zipPath, "-d", extractDir); err != nil {
		return nil, fmt.Errorf("archive: unpack: %w", err)
	}

	folders, err := topLevelFolders(extractDir)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("archive: no project folders in archive")
	}

	results := make([]ProjectImport, 0, len(folders))
	for _, folder := range folders {
		results = append(results, b.importFolder(ctx, extractDir, folder))
	}
	return results, nil
}

func (b *Bridge) importFolder(ctx context.Context, extractDir, folder string) ProjectImport {
	imp := ProjectImport{Folder: folder}

	dest, err := b.dir.Abs(folder)
	if err != nil {
		imp.Error = err.Error()
		return imp
	}
	src := filepath.Join(extractDir, folder)
	// Trailing slashes make rsync merge contents rather than nest src
	// under dest.
	if _, err := b.runner.Run(ctx, extractDir, b.tools.Copy, "-a", src+string(filepath.Separator), dest+string(filepath.Separator)); err != nil {
		imp.Error = fmt.Sprintf("copy: %v", err)
		return imp
	}

	res, err := b.sync.SyncProject(folder)
	if err != nil {
		imp.Error = fmt.Sprintf("sync: %v", err)
		return imp
	}
	imp.Result = res
	b.logger.Info("archive: imported project", slog.String("folder", folder), slog.Bool("created", res.Created))
	return imp
}

// Export packs one project folder into a zip archive and returns the
// archive bytes together with a suggested file name.
func (b *Bridge) Export(ctx context.Context, folder string) ([]byte, string, error) {
	rec, err := b.store.FindByFolder(folder)
	if err != nil {
		return nil, "", err
	}

	abs, err := b.dir.Abs(rec.Folder)
	if err != nil {
		return nil, "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, "", fmt.Errorf("archive: project folder %q missing on disk", rec.Folder)
	}

	scratch, err := os.MkdirTemp("", "folio-export-")
	if err != nil {
		return nil, "", fmt.Errorf("archive: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	root, err := b.dir.Abs("")
	if err != nil {
		return nil, "", err
	}
	zipPath := filepath.Join(scratch, rec.Folder+".zip")
	// zip runs from the studio root so the folder name is the archive's
	// single top-level entry.
	if _, err := b.runner.Run(ctx, root, b.tools.Zip, "-q", "-r", zipPath, rec.Folder); err != nil {
		return nil, "", fmt.Errorf("archive: pack: %w", err)
	}

	data, err := os.ReadFile(zipPath)
	if err != nil {
		return nil, "", fmt.Errorf("archive: read archive: %w", err)
	}
	b.logger.Info("archive: exported project", slog.String("folder", rec.Folder), slog.Int("bytes", len(data)))
	return data, rec.Folder + ".zip", nil
}

// topLevelFolders lists the directories a fresh extraction produced,
// skipping zip litter such as __MACOSX.
func topLevelFolders(extractDir string) ([]string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return nil, fmt.Errorf("archive: read extraction: %w", err)
	}
	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || name == "__MACOSX" {
			continue
		}
		folders = append(folders, name)
	}
	return folders, nil
}
