package adnet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adverge/adverge/internal/models"
)

// MockAdapter is a scriptable Adapter for tests and local development. It
// can return a fixed price, decline, fail, or sleep past the auction
// deadline, and records every bid request and win notification it receives.
type MockAdapter struct {
	Name  string
	Floor float64

	// Price is returned on each bid when Decline and Err are unset.
	Price float64
	// Ad is the display payload attached to bids.
	Ad models.AdData
	// Decline makes Bid return (nil, nil).
	Decline bool
	// Err makes Bid fail.
	Err error
	// Delay is slept (context permitting) before responding.
	Delay time.Duration
	// WinOK is the acknowledgement NotifyWin reports.
	WinOK bool
	// WinErr makes NotifyWin fail.
	WinErr error

	mu        sync.Mutex
	bids      []*models.BidRequest
	winTokens []string
}

// NewMockAdapter returns a MockAdapter that bids price and acknowledges wins.
func NewMockAdapter(name string, price float64) *MockAdapter {
	return &MockAdapter{Name: name, Price: price, WinOK: true}
}

func (m *MockAdapter) Platform() string    { return m.Name }
func (m *MockAdapter) FloorPrice() float64 { return m.Floor }

func (m *MockAdapter) Bid(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	m.bids = append(m.bids, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Decline {
		return nil, nil
	}
	return &models.BidResponse{
		Source:   m.Name,
		Price:    m.Price,
		Currency: "USD",
		BidToken: uuid.NewString(),
		Ad:       m.Ad,
	}, nil
}

func (m *MockAdapter) NotifyWin(ctx context.Context, bidToken string) (bool, error) {
	m.mu.Lock()
	m.winTokens = append(m.winTokens, bidToken)
	m.mu.Unlock()

	if m.WinErr != nil {
		return false, m.WinErr
	}
	return m.WinOK, nil
}

// BidCalls returns the bid requests received so far.
func (m *MockAdapter) BidCalls() []*models.BidRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.BidRequest, len(m.bids))
	copy(out, m.bids)
	return out
}

// WinTokens returns the win notifications received so far.
func (m *MockAdapter) WinTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.winTokens))
	copy(out, m.winTokens)
	return out
}
