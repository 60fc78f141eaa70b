package syncer

import (
	"fmt"
	"path"
	"time"

	"github.com/origincreativegroup/folio/internal/checksum"
	"github.com/origincreativegroup/folio/internal/metadata"
	"github.com/origincreativegroup/folio/internal/scanner"
)

// UpdateMetadata rewrites a project's metadata file and store record with
// optimistic concurrency. expected is the metadata checksum the caller
// last observed; when it and the stored checksum are both present and
// differ, the edit is rejected with a *Conflict and nothing is written.
func (s *Syncer) UpdateMetadata(folder string, meta metadata.ParsedMetadata, expected string) error {
	unlock := s.lock(folder)
	defer unlock()

	rec, err := s.store.FindByFolder(folder)
	if err != nil {
		return err
	}
	if expected != "" && rec.MetadataChecksum != "" && expected != rec.MetadataChecksum {
		return &Conflict{
			Field:            "metadata",
			Reason:           "metadata changed since it was last read",
			ExpectedChecksum: expected,
			ActualChecksum:   rec.MetadataChecksum,
		}
	}

	data, err := meta.MarshalPretty()
	if err != nil {
		return err
	}
	rel := rec.MetadataPath
	if rel == "" {
		rel = scanner.MetadataCandidates[0]
	}
	sum, modTime, err := s.writeProjectFile(folder, rel, data)
	if err != nil {
		return err
	}

	slug := scanner.DeriveSlug(meta.Title, folder)
	if err := s.store.UpdateProjectMetadata(rec.ID, meta, slug, sum, modTime); err != nil {
		return err
	}
	s.notify(EventUpdated, folder)
	return nil
}

// UpdateNarrative rewrites the narrative file under the same optimistic
// concurrency rule. A project that never had a narrative gets the
// current-generation filename on first write.
func (s *Syncer) UpdateNarrative(folder, narrative, expected string) error {
	unlock := s.lock(folder)
	defer unlock()

	rec, err := s.store.FindByFolder(folder)
	if err != nil {
		return err
	}
	if expected != "" && rec.NarrativeChecksum != "" && expected != rec.NarrativeChecksum {
		return &Conflict{
			Field:            "narrative",
			Reason:           "narrative changed since it was last read",
			ExpectedChecksum: expected,
			ActualChecksum:   rec.NarrativeChecksum,
		}
	}

	rel := rec.NarrativePath
	if rel == "" {
		rel = scanner.NarrativeCandidates[0]
	}
	data := []byte(narrative)
	sum, modTime, err := s.writeProjectFile(folder, rel, data)
	if err != nil {
		return err
	}

	if err := s.store.UpdateProjectNarrative(rec.ID, narrative, rel, sum, modTime); err != nil {
		return err
	}
	s.notify(EventUpdated, folder)
	return nil
}

// writeProjectFile atomically writes one project file and reports the
// checksum and mtime of the freshly written bytes.
func (s *Syncer) writeProjectFile(folder, rel string, data []byte) (string, time.Time, error) {
	full := path.Join(folder, rel)
	if err := s.dir.WriteAtomic(full, data); err != nil {
		return "", time.Time{}, err
	}
	info, err := s.dir.Stat(full)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("syncer: stat after write: %w", err)
	}
	return checksum.Sum(data), info.ModTime(), nil
}
