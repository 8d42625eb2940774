// Package auction implements the bid auction core: the scatter-gather
// orchestrator that fans a bid request out to every registered ad network,
// and the cache-aside service that turns gathered bids into a winner.
package auction

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/adnet"
	"github.com/adverge/adverge/internal/models"
	"github.com/adverge/adverge/internal/observability"
)

// adapter bid call results, as recorded in metrics
const (
	resultBid     = "bid"
	resultNoBid   = "no_bid"
	resultError   = "error"
	resultTimeout = "timeout"
)

// bidResult is the outcome of one adapter's bid call. Exactly one of resp
// and err is set for error outcomes; both nil means the network declined.
type bidResult struct {
	idx     int
	resp    *models.BidResponse
	err     error
	elapsed time.Duration
}

// Orchestrator fans one bid request out to a set of adapters and gathers
// whatever valid responses arrive before the auction deadline.
type Orchestrator struct {
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(logger *zap.Logger, metrics observability.MetricsRegistry) *Orchestrator {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Orchestrator{logger: logger, metrics: metrics}
}

// RunAuction issues one concurrent bid call per adapter and returns the
// responses that completed within timeout. Adapter failures are downgraded
// to "no bid from this adapter" and never fail the round. Responses still
// outstanding at the deadline are excluded; their calls are not forcibly
// cancelled beyond the deadline carried by the derived context, and any
// late result is discarded. Cancelling ctx ends the wait early and returns
// the responses gathered so far.
//
// The returned slice is unordered; callers must treat it as a set.
func (o *Orchestrator) RunAuction(ctx context.Context, req *models.BidRequest, adapters []adnet.Adapter, timeout time.Duration) []*models.BidResponse {
	if len(adapters) == 0 {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered to len(adapters) so a straggler finishing after the join
	// never blocks, and its goroutine never leaks.
	results := make(chan bidResult, len(adapters))
	for i, a := range adapters {
		go func(idx int, a adnet.Adapter) {
			start := time.Now()
			resp, err := o.callAdapter(callCtx, a, req)
			results <- bidResult{idx: idx, resp: resp, err: err, elapsed: time.Since(start)}
		}(i, a)
	}

	responses := make([]*models.BidResponse, 0, len(adapters))
	done := make([]bool, len(adapters))
	pending := len(adapters)

	for pending > 0 {
		select {
		case r := <-results:
			pending--
			done[r.idx] = true
			platform := adapters[r.idx].Platform()
			o.metrics.RecordAdapterBidDuration(platform, r.elapsed)
			switch {
			case r.err != nil:
				o.metrics.IncrementAdapterBids(platform, resultError)
				o.logger.Debug("adapter bid failed",
					zap.String("platform", platform),
					zap.String("ad_unit_id", req.AdUnitID),
					zap.Duration("elapsed", r.elapsed),
					zap.Error(r.err))
			case r.resp == nil:
				o.metrics.IncrementAdapterBids(platform, resultNoBid)
			default:
				o.metrics.IncrementAdapterBids(platform, resultBid)
				responses = append(responses, r.resp)
			}
		case <-callCtx.Done():
			// Deadline or caller cancellation: stop waiting for
			// stragglers and account for them.
			for idx, d := range done {
				if !d {
					o.metrics.IncrementAdapterBids(adapters[idx].Platform(), resultTimeout)
				}
			}
			o.logger.Debug("auction join ended early",
				zap.String("ad_unit_id", req.AdUnitID),
				zap.Int("outstanding", pending),
				zap.Int("gathered", len(responses)),
				zap.NamedError("cause", callCtx.Err()))
			return responses
		}
	}

	return responses
}

// callAdapter invokes one adapter's Bid, converting panics to errors and
// rejecting responses that violate the bid invariants.
func (o *Orchestrator) callAdapter(ctx context.Context, a adnet.Adapter, req *models.BidRequest) (resp *models.BidResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("adapter %s panicked: %v", a.Platform(), r)
		}
	}()

	resp, err = a.Bid(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	if resp.Source == "" {
		resp.Source = a.Platform()
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}
