package models

import "fmt"

// AdData holds the display payload returned by a winning network. It is
// opaque to the auction logic and passed through to the client untouched.
type AdData struct {
	AdID        string `json:"adId,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
	CTAText     string `json:"ctaText,omitempty"`
	LandingURL  string `json:"landingUrl,omitempty"`
}

// BidResponse is a priced answer from one ad network. A network that
// declines to bid returns no BidResponse at all; a present response always
// carries a price, so price 0 is a real zero-dollar bid, never "no bid".
type BidResponse struct {
	// Source is the platform identifier of the network that bid.
	Source   string  `json:"source"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
	// BidToken is the opaque handle the network expects back in the win
	// notification. Unique per auction round per platform.
	BidToken string `json:"bidToken"`
	Ad       AdData `json:"ad"`
}

// Validate checks the response invariants enforced on every adapter result.
func (b *BidResponse) Validate() error {
	if b.Source == "" {
		return fmt.Errorf("bid response missing source")
	}
	if b.Price < 0 {
		return fmt.Errorf("bid from %s has negative price %v", b.Source, b.Price)
	}
	if b.BidToken == "" {
		return fmt.Errorf("bid from %s missing bid token", b.Source)
	}
	return nil
}

// AuctionResult is the outcome of one auction round: the winner (nil on
// no-fill) plus every floor-eligible bid received, kept for metrics.
type AuctionResult struct {
	Winner       *BidResponse
	EligibleBids []*BidResponse
}

// NoFill reports whether the round produced no winner.
func (r *AuctionResult) NoFill() bool {
	return r == nil || r.Winner == nil
}
