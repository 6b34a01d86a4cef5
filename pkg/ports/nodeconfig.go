package ports

import (
	"context"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
)

// NodeConfigStore persists the identity the node was started with.
// The bootstrap only writes it; reading back is left to inspection tools.
type NodeConfigStore interface {
	Save(ctx context.Context, id domain.Identity) error
}
