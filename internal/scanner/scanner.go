// Package scanner builds a filesystem snapshot of one project folder:
// metadata and narrative resolved across both layout generations, asset and
// deliverable trees walked with per-file checksums.
package scanner

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/origincreativegroup/folio/internal/apperr"
	"github.com/origincreativegroup/folio/internal/checksum"
	"github.com/origincreativegroup/folio/internal/metadata"
	"github.com/origincreativegroup/folio/internal/models"
	"github.com/origincreativegroup/folio/internal/slug"
	"github.com/origincreativegroup/folio/internal/studio"
)

// defaultIgnore filters OS litter out of every scan. Dotfiles and dot
// directories are skipped structurally during the walk.
var defaultIgnore = []string{"**/Thumbs.db", "**/desktop.ini"}

// Scanner scans project folders under one studio directory.
type Scanner struct {
	dir    *studio.Dir
	ignore []string // doublestar patterns matched against project-relative slash paths
}

// New creates a Scanner. Extra ignore patterns from configuration are
// applied on top of the defaults.
func New(dir *studio.Dir, ignore []string) *Scanner {
	patterns := append([]string{}, defaultIgnore...)
	patterns = append(patterns, ignore...)
	return &Scanner{dir: dir, ignore: patterns}
}

// Scan snapshots one project folder. A missing metadata file is a
// *MissingMetadataError; a missing narrative file is tolerated. The
// snapshot is rebuilt from disk on every call.
func (s *Scanner) Scan(folder string) (*models.Project, error) {
	info, err := s.dir.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("scanner: %q: %w", folder, apperr.ErrNoProject)
	}

	metaRel, ok := resolveFile(s.dir, folder, MetadataCandidates)
	if !ok {
		return nil, &MissingMetadataError{Folder: folder, Candidates: MetadataCandidates}
	}
	rawMeta, err := s.dir.Read(path.Join(folder, metaRel))
	if err != nil {
		return nil, err
	}
	meta, err := metadata.Decode(rawMeta)
	if err != nil {
		return nil, fmt.Errorf("scanner: %s/%s: %w", folder, metaRel, err)
	}
	metaInfo, err := s.dir.Stat(path.Join(folder, metaRel))
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		Folder:           folder,
		Slug:             DeriveSlug(meta.Title, folder),
		MetadataPath:     metaRel,
		Metadata:         meta,
		MetadataChecksum: checksum.Sum(rawMeta),
		ModifiedAt:       metaInfo.ModTime(),
		Assets:           []models.Asset{},
		Deliverables:     []models.Deliverable{},
	}

	if narRel, ok := resolveFile(s.dir, folder, NarrativeCandidates); ok {
		data, err := s.dir.Read(path.Join(folder, narRel))
		if err != nil {
			return nil, err
		}
		narInfo, err := s.dir.Stat(path.Join(folder, narRel))
		if err != nil {
			return nil, err
		}
		p.NarrativePath = narRel
		p.Narrative = string(data)
		p.NarrativeChecksum = checksum.Sum(data)
		if narInfo.ModTime().After(p.ModifiedAt) {
			p.ModifiedAt = narInfo.ModTime()
		}
	}

	if assetDir, ok := resolveDir(s.dir, folder, AssetDirCandidates); ok {
		files, err := s.collect(folder, assetDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			p.Assets = append(p.Assets, models.Asset{
				RelPath:    f.relPath,
				Label:      labelFor(f.relPath),
				Kind:       kindOf(f.relPath),
				Size:       f.size,
				Checksum:   f.sum,
				ModifiedAt: f.modTime,
			})
			if f.modTime.After(p.ModifiedAt) {
				p.ModifiedAt = f.modTime
			}
		}
	}

	if delivDir, ok := resolveDir(s.dir, folder, DeliverableCandidates); ok {
		files, err := s.collect(folder, delivDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			p.Deliverables = append(p.Deliverables, models.Deliverable{
				RelPath:    f.relPath,
				Label:      labelFor(f.relPath),
				Format:     formatOf(f.relPath),
				Size:       f.size,
				Checksum:   f.sum,
				ModifiedAt: f.modTime,
			})
			if f.modTime.After(p.ModifiedAt) {
				p.ModifiedAt = f.modTime
			}
		}
	}

	return p, nil
}

type fileEntry struct {
	relPath string // project-relative, slash-separated
	size    int64
	sum     string
	modTime time.Time
}

// collect walks one subdirectory of the project folder and returns every
// regular file that survives the ignore patterns. Paths come back relative
// to the project folder so identity is stable across scans.
func (s *Scanner) collect(folder, sub string) ([]fileEntry, error) {
	prefix := folder + string(filepath.Separator)
	var out []fileEntry
	err := s.dir.Walk(path.Join(folder, sub), func(rel string, entry fs.DirEntry) error {
		name := entry.Name()
		if entry.IsDir() {
			if strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		projRel := filepath.ToSlash(strings.TrimPrefix(rel, prefix))
		if s.ignored(projRel) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		data, err := s.dir.Read(rel)
		if err != nil {
			return err
		}
		out = append(out, fileEntry{
			relPath: projRel,
			size:    info.Size(),
			sum:     checksum.Sum(data),
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scanner) ignored(relPath string) bool {
	for _, pattern := range s.ignore {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// DeriveSlug slugifies the title, falling back to the folder name when the
// title carries nothing usable. The edit path reuses it so a retitled
// project keeps slug and title in step.
func DeriveSlug(title, folder string) string {
	s := slug.Make(title)
	if s != slug.Fallback {
		return s
	}
	if fs := slug.Make(folder); fs != slug.Fallback {
		return fs
	}
	return slug.Fallback
}

var kindByExt = map[string]string{
	".jpg": "image", ".jpeg": "image", ".png": "image", ".gif": "image",
	".webp": "image", ".svg": "image", ".bmp": "image", ".tiff": "image",
	".mp4": "video", ".mov": "video", ".avi": "video", ".mkv": "video", ".webm": "video",
	".mp3": "audio", ".wav": "audio", ".flac": "audio", ".aac": "audio", ".ogg": "audio", ".m4a": "audio",
	".pdf": "document", ".doc": "document", ".docx": "document", ".txt": "document", ".md": "document", ".rtf": "document",
}

// kindOf classifies an asset by extension; anything unrecognized is a
// plain "asset".
func kindOf(relPath string) string {
	if k, ok := kindByExt[strings.ToLower(path.Ext(relPath))]; ok {
		return k
	}
	return "asset"
}

// formatOf is the deliverable's lowercase extension without the dot, or
// "file" when there is none.
func formatOf(relPath string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(relPath)), ".")
	if ext == "" {
		return "file"
	}
	return ext
}

// labelFor turns a file name into a display label: the stem with
// hyphen/underscore separators replaced by spaces.
func labelFor(relPath string) string {
	base := path.Base(relPath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	label := strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return base
	}
	return label
}
