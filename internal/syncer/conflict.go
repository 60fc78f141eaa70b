package syncer

import (
	"fmt"

	"github.com/origincreativegroup/folio/internal/apperr"
)

// Conflict rejects a direct edit whose expected checksum no longer matches
// the store. Only edit operations produce it; passive scans never do. The
// caller is expected to re-fetch and retry with the current checksum.
type Conflict struct {
	Field            string `json:"field"`
	Reason           string `json:"reason"`
	ExpectedChecksum string `json:"expectedChecksum"`
	ActualChecksum   string `json:"actualChecksum"`
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("syncer: %s conflict: expected checksum %s, store has %s",
		c.Field, shortSum(c.ExpectedChecksum), shortSum(c.ActualChecksum))
}

func (c *Conflict) Is(target error) bool {
	return target == apperr.ErrConflict
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	if sum == "" {
		return "(none)"
	}
	return sum
}
