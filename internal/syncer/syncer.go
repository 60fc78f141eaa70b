// Package syncer reconciles the project store with the studio directory.
// The filesystem is authoritative: a sync overwrites every descriptive
// field from a fresh scan and prunes store children that no longer exist
// on disk.
package syncer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/origincreativegroup/folio/internal/apperr"
	"github.com/origincreativegroup/folio/internal/models"
	"github.com/origincreativegroup/folio/internal/scanner"
	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/studio"
)

// Event kinds handed to the notify callback.
const (
	EventCreated = "project.created"
	EventUpdated = "project.updated"
	EventSynced  = "project.synced"
)

// Result is the outcome of syncing one project.
type Result struct {
	Folder       string   `json:"folder"`
	Created      bool     `json:"created"`
	Status       string   `json:"status"`
	Assets       int      `json:"assets"`
	Deliverables int      `json:"deliverables"`
	Conflicts    []string `json:"conflicts,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Failure records one project folder a sweep could not sync.
type Failure struct {
	Folder string `json:"folder"`
	Error  string `json:"error"`
}

// Summary aggregates a whole-studio sweep. Scanned counts successes only;
// folders that failed outright land in Failures, never silently dropped.
type Summary struct {
	Scanned   int       `json:"scanned"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Conflicts []string  `json:"conflicts,omitempty"`
	Warnings  []string  `json:"warnings,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Syncer drives project reconciliation and the direct edit path.
type Syncer struct {
	dir    *studio.Dir
	scan   *scanner.Scanner
	store  store.Store
	logger *slog.Logger
	notify func(kind, folder string)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Syncer. notify may be nil; when set it receives one event
// per completed sync or edit and must not block.
func New(dir *studio.Dir, scan *scanner.Scanner, st store.Store, logger *slog.Logger, notify func(kind, folder string)) *Syncer {
	if notify == nil {
		notify = func(string, string) {}
	}
	return &Syncer{
		dir:    dir,
		scan:   scan,
		store:  st,
		logger: logger,
		notify: notify,
		locks:  map[string]*sync.Mutex{},
	}
}

// lock serializes syncs and edits per folder. Two concurrent operations on
// the same folder would interleave scan reads with store writes.
func (s *Syncer) lock(folder string) func() {
	s.mu.Lock()
	m, ok := s.locks[folder]
	if !ok {
		m = &sync.Mutex{}
		s.locks[folder] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// SyncProject scans one folder and reconciles its store record and
// children. Running it twice with no filesystem change yields clean status
// both times and no net child mutations.
func (s *Syncer) SyncProject(folder string) (*Result, error) {
	unlock := s.lock(folder)
	defer unlock()
	return s.syncLocked(folder)
}

func (s *Syncer) syncLocked(folder string) (*Result, error) {
	p, err := s.scan.Scan(folder)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res := &Result{Folder: folder}
	event := EventSynced

	var id int64
	existing, err := s.store.FindByFolder(folder)
	switch {
	case err == nil:
		status := models.StatusClean
		if existing.MetadataChecksum != p.MetadataChecksum || existing.NarrativeChecksum != p.NarrativeChecksum {
			status = models.StatusFSUpdated
			event = EventUpdated
		}
		if err := s.store.UpdateProject(existing.ID, p, status, now); err != nil {
			return nil, err
		}
		id = existing.ID
		res.Status = status
	case errors.Is(err, apperr.ErrNotFound):
		newID, err := s.store.CreateProject(p, now)
		if err != nil {
			return nil, err
		}
		id = newID
		res.Created = true
		res.Status = models.StatusClean
		event = EventCreated
	default:
		return nil, err
	}

	s.reconcileChildren(id, p, res)

	s.logger.Debug("sync: project reconciled",
		slog.String("folder", folder),
		slog.String("status", res.Status),
		slog.Bool("created", res.Created),
		slog.Int("assets", res.Assets),
		slog.Int("deliverables", res.Deliverables))
	s.notify(event, folder)
	return res, nil
}

// reconcileChildren prunes rows whose files are gone, then upserts every
// scanned file. One failing child does not stop the rest; failures are
// collected as warnings because a later re-sync will retry them.
func (s *Syncer) reconcileChildren(id int64, p *models.Project, res *Result) {
	keepAssets := make([]string, 0, len(p.Assets))
	for _, a := range p.Assets {
		keepAssets = append(keepAssets, a.RelPath)
	}
	if err := s.store.DeleteAssetsExcept(id, keepAssets); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("prune assets: %v", err))
	}
	for _, a := range p.Assets {
		if err := s.store.UpsertAsset(id, a); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("asset %s: %v", a.RelPath, err))
			continue
		}
		res.Assets++
	}

	keepDeliv := make([]string, 0, len(p.Deliverables))
	for _, d := range p.Deliverables {
		keepDeliv = append(keepDeliv, d.RelPath)
	}
	if err := s.store.DeleteDeliverablesExcept(id, keepDeliv); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("prune deliverables: %v", err))
	}
	for _, d := range p.Deliverables {
		if err := s.store.UpsertDeliverable(id, d); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("deliverable %s: %v", d.RelPath, err))
			continue
		}
		res.Deliverables++
	}
}

// SyncAll sweeps every project folder under the studio root sequentially.
func (s *Syncer) SyncAll() (*Summary, error) {
	folders, err := s.dir.ProjectFolders()
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	for _, folder := range folders {
		res, err := s.SyncProject(folder)
		if err != nil {
			sum.Failures = append(sum.Failures, Failure{Folder: folder, Error: err.Error()})
			s.logger.Warn("sync: project failed",
				slog.String("folder", folder),
				slog.String("error", err.Error()))
			continue
		}
		sum.Scanned++
		if res.Created {
			sum.Created++
		}
		sum.Conflicts = append(sum.Conflicts, res.Conflicts...)
		for _, w := range res.Warnings {
			sum.Warnings = append(sum.Warnings, fmt.Sprintf("%s: %s", folder, w))
		}
	}
	sum.Updated = sum.Scanned - sum.Created

	s.logger.Info("sync: sweep complete",
		slog.Int("scanned", sum.Scanned),
		slog.Int("created", sum.Created),
		slog.Int("updated", sum.Updated),
		slog.Int("failures", len(sum.Failures)))
	return sum, nil
}
