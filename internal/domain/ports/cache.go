package ports

import (
	"context"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// CandidateCache retains ranked candidates so a threshold change does not
// re-query the terminology source. A miss is reported with ok == false.
type CandidateCache interface {
	Get(ctx context.Context, key string) (candidates []entities.Candidate, ok bool, err error)
	Set(ctx context.Context, key string, candidates []entities.Candidate) error
}
