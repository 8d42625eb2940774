// Package adnet defines the contract between the auction core and the
// per-platform ad network integrations, plus the registry that holds the
// configured set of networks.
package adnet

import (
	"context"

	"github.com/adverge/adverge/internal/models"
)

// Adapter executes bids against a single ad network.
//
// Implementations must be safe for concurrent use: one auction round calls
// every registered adapter in parallel, and multiple rounds may overlap.
// Bid should enforce its own sub-timeout below the orchestrator's auction
// deadline; the context carries that deadline as the authoritative backstop.
type Adapter interface {
	// Bid requests a price for the given ad unit. A nil response with a
	// nil error means the network declined to bid. Errors are recovered
	// by the orchestrator and downgraded to "no bid from this adapter".
	Bid(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error)

	// NotifyWin informs the network that its bid won, using the token the
	// network returned with the bid. The boolean reports whether the
	// network acknowledged the win.
	NotifyWin(ctx context.Context, bidToken string) (bool, error)

	// Platform returns the network's platform identifier.
	Platform() string

	// FloorPrice returns the network-level minimum bid this adapter was
	// configured with, informational for reporting.
	FloorPrice() float64
}
