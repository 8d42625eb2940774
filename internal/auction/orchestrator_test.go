package auction

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/adnet"
	"github.com/adverge/adverge/internal/models"
)

func testRequest() *models.BidRequest {
	return &models.BidRequest{AdUnitID: "unit-1", AdType: models.AdTypeBanner}
}

func sources(responses []*models.BidResponse) map[string]bool {
	out := make(map[string]bool, len(responses))
	for _, r := range responses {
		out[r.Source] = true
	}
	return out
}

func TestRunAuction_AllAdaptersComplete(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)
	adapters := []adnet.Adapter{
		adnet.NewMockAdapter("alpha", 1.20),
		adnet.NewMockAdapter("beta", 0.80),
	}

	responses := o.RunAuction(context.Background(), testRequest(), adapters, time.Second)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	got := sources(responses)
	if !got["alpha"] || !got["beta"] {
		t.Errorf("missing expected sources: %v", got)
	}
}

func TestRunAuction_AdapterErrorDoesNotFailRound(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)
	broken := adnet.NewMockAdapter("broken", 5.00)
	broken.Err = errors.New("connection refused")
	adapters := []adnet.Adapter{
		broken,
		adnet.NewMockAdapter("beta", 0.80),
	}

	responses := o.RunAuction(context.Background(), testRequest(), adapters, time.Second)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Source != "beta" {
		t.Errorf("expected beta, got %s", responses[0].Source)
	}
}

func TestRunAuction_DeclineIsNotAResponse(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)
	declining := adnet.NewMockAdapter("shy", 2.00)
	declining.Decline = true

	responses := o.RunAuction(context.Background(), testRequest(), []adnet.Adapter{declining}, time.Second)
	if len(responses) != 0 {
		t.Fatalf("expected no responses, got %d", len(responses))
	}
}

func TestRunAuction_SlowAdapterExcluded(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)
	slow := adnet.NewMockAdapter("slow", 9.99)
	slow.Delay = 500 * time.Millisecond
	adapters := []adnet.Adapter{
		slow,
		adnet.NewMockAdapter("fast", 0.50),
	}

	start := time.Now()
	responses := o.RunAuction(context.Background(), testRequest(), adapters, 50*time.Millisecond)
	elapsed := time.Since(start)

	if len(responses) != 1 {
		t.Fatalf("expected only the fast response, got %d", len(responses))
	}
	if responses[0].Source != "fast" {
		t.Errorf("expected fast, got %s", responses[0].Source)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("join waited past the deadline: %v", elapsed)
	}
}

func TestRunAuction_PanickingAdapterIsContained(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)
	adapters := []adnet.Adapter{
		panicAdapter{},
		adnet.NewMockAdapter("calm", 1.00),
	}

	responses := o.RunAuction(context.Background(), testRequest(), adapters, time.Second)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Source != "calm" {
		t.Errorf("expected calm, got %s", responses[0].Source)
	}
}

func TestRunAuction_CallerCancellationReturnsPartial(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)
	slow := adnet.NewMockAdapter("slow", 3.00)
	slow.Delay = time.Second
	adapters := []adnet.Adapter{
		adnet.NewMockAdapter("fast", 1.00),
		slow,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	responses := o.RunAuction(ctx, testRequest(), adapters, 5*time.Second)
	if len(responses) != 1 {
		t.Fatalf("expected the fast response to survive cancellation, got %d", len(responses))
	}
	if responses[0].Source != "fast" {
		t.Errorf("expected fast, got %s", responses[0].Source)
	}
}

func TestRunAuction_InvalidResponseRejected(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)

	responses := o.RunAuction(context.Background(), testRequest(), []adnet.Adapter{badTokenAdapter{}}, time.Second)
	if len(responses) != 0 {
		t.Fatalf("expected invalid bid to be dropped, got %d responses", len(responses))
	}
}

func TestRunAuction_NoAdapters(t *testing.T) {
	o := NewOrchestrator(zap.NewNop(), nil)
	if got := o.RunAuction(context.Background(), testRequest(), nil, time.Second); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

type panicAdapter struct{}

func (panicAdapter) Platform() string    { return "unstable" }
func (panicAdapter) FloorPrice() float64 { return 0 }
func (panicAdapter) Bid(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error) {
	panic("boom")
}
func (panicAdapter) NotifyWin(ctx context.Context, token string) (bool, error) { return false, nil }

// badTokenAdapter bids without the required bid token.
type badTokenAdapter struct{}

func (badTokenAdapter) Platform() string    { return "sloppy" }
func (badTokenAdapter) FloorPrice() float64 { return 0 }
func (badTokenAdapter) Bid(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error) {
	return &models.BidResponse{Source: "sloppy", Price: 1.00}, nil
}
func (badTokenAdapter) NotifyWin(ctx context.Context, token string) (bool, error) { return false, nil }
