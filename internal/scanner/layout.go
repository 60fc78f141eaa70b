package scanner

import (
	"fmt"
	"path"
	"strings"

	"github.com/origincreativegroup/folio/internal/studio"
)

// On-disk naming has two generations. Candidates are probed in order and
// the first existing entry wins; the current-generation name always comes
// first so a folder carrying both resolves to the newer one.
var (
	MetadataCandidates    = []string{"02_Metadata.json", "metadata.json"}
	NarrativeCandidates   = []string{"01_Narrative.md", "brief.md"}
	AssetDirCandidates    = []string{"03_Assets", "assets"}
	DeliverableCandidates = []string{"06_Exports", "deliverables"}
)

// MissingMetadataError reports a project folder without any recognized
// metadata file. It is fatal for that folder's sync but must not abort a
// sweep over sibling folders.
type MissingMetadataError struct {
	Folder     string
	Candidates []string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("scanner: project %q has no metadata file (expected one of: %s)",
		e.Folder, strings.Join(e.Candidates, ", "))
}

// resolveFile returns the first candidate that exists as a regular file in
// the project folder, as a project-relative path.
func resolveFile(dir *studio.Dir, folder string, candidates []string) (string, bool) {
	for _, name := range candidates {
		info, err := dir.Stat(path.Join(folder, name))
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return name, true
		}
	}
	return "", false
}

// ResolveAssetDir returns the project's asset directory name, preferring an
// existing generation and defaulting to the current one.
func ResolveAssetDir(dir *studio.Dir, folder string) string {
	if name, ok := resolveDir(dir, folder, AssetDirCandidates); ok {
		return name
	}
	return AssetDirCandidates[0]
}

// resolveDir returns the first candidate that exists as a directory in the
// project folder.
func resolveDir(dir *studio.Dir, folder string, candidates []string) (string, bool) {
	for _, name := range candidates {
		info, err := dir.Stat(path.Join(folder, name))
		if err != nil {
			continue
		}
		if info.IsDir() {
			return name, true
		}
	}
	return "", false
}
