package evidence

import (
	"context"

	"github.com/checkai/checkai/internal/model"
)

// Channel is a single evidence retrieval backend. Implementations return
// raw candidates for a query; ranking, dedup and probing happen later.
type Channel interface {
	// Name identifies the channel in logs and config
	Name() string
	// Search runs the query and returns up to limit candidates
	Search(ctx context.Context, query string, limit int) ([]model.EvidenceCandidate, error)
}
