package auction

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/adnet"
	"github.com/adverge/adverge/internal/cache"
	"github.com/adverge/adverge/internal/events"
	"github.com/adverge/adverge/internal/models"
	"github.com/adverge/adverge/internal/observability"
	"github.com/adverge/adverge/internal/stats"
)

var tracer = otel.Tracer("adverge")

// ErrUnknownAdUnit is returned when the requested ad unit is not configured.
var ErrUnknownAdUnit = errors.New("unknown ad unit")

// auction outcomes, as recorded in metrics
const (
	outcomeWin    = "win"
	outcomeNoFill = "no_fill"
	outcomeError  = "error"
)

// AdUnitResolver resolves ad unit configuration. Implemented by the
// in-memory snapshot in internal/store.
type AdUnitResolver interface {
	GetAdUnit(id string) (*models.AdUnit, bool)
}

// Options carries per-request context supplied by the client alongside a
// GetAd call.
type Options struct {
	AppID  string
	Device *models.DeviceInfo
	Geo    *models.GeoData
}

// Config holds the auction service tunables.
type Config struct {
	// BidTimeout bounds one auction round end to end.
	BidTimeout time.Duration
	// CacheTTL is how long a winning bid is served from cache.
	CacheTTL time.Duration
	// WinNotifyTimeout bounds the winner callback, which runs detached
	// from the auction round.
	WinNotifyTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BidTimeout <= 0 {
		out.BidTimeout = 5 * time.Second
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = 300 * time.Second
	}
	if out.WinNotifyTimeout <= 0 {
		out.WinNotifyTimeout = 2 * time.Second
	}
	return out
}

// Service runs cache-aside bid auctions: GetAd serves a cached winner when
// one exists and otherwise delegates to Bid, which fans the request out via
// the orchestrator, selects the winner, notifies it and records outcomes.
type Service struct {
	registry *adnet.Registry
	orch     *Orchestrator
	units    AdUnitResolver
	cache    cache.AuctionCache
	events   events.Sink
	stats    stats.Sink
	metrics  observability.MetricsRegistry
	logger   *zap.Logger
	cfg      Config
}

// NewService constructs a Service. Cache, event and stats sinks may be nil;
// they are replaced with no-ops so tests can wire only what they assert on.
func NewService(registry *adnet.Registry, units AdUnitResolver, c cache.AuctionCache, ev events.Sink, st stats.Sink, metrics observability.MetricsRegistry, logger *zap.Logger, cfg Config) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if ev == nil {
		ev = events.Nop{}
	}
	if st == nil {
		st = stats.Nop{}
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Service{
		registry: registry,
		orch:     NewOrchestrator(logger, metrics),
		units:    units,
		cache:    c,
		events:   ev,
		stats:    st,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// GetAd returns an ad for the given ad unit, serving a previously decided
// winner from cache when one is present and running a fresh auction
// otherwise. A nil response with a nil error is a no-fill.
func (s *Service) GetAd(ctx context.Context, adUnitID string, opts Options) (*models.BidResponse, error) {
	ctx, span := tracer.Start(ctx, "auction.GetAd")
	defer span.End()
	span.SetAttributes(attribute.String("ad_unit_id", adUnitID))

	s.emit(ctx, events.Event{Type: events.TypeRequest, AppID: opts.AppID, AdUnitID: adUnitID})

	if cached, err := s.cache.Get(ctx, adUnitID); err == nil {
		s.metrics.IncrementCacheLookups("hit")
		span.SetAttributes(attribute.Bool("cache_hit", true))
		// A cache hit still counts as a bid served by that platform.
		s.emit(ctx, events.Event{
			Type:     events.TypeBid,
			AppID:    opts.AppID,
			AdUnitID: adUnitID,
			Platform: cached.Source,
			AdID:     cached.Ad.AdID,
			Price:    &cached.Price,
		})
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Cache trouble must not block the auction.
		s.metrics.IncrementCacheLookups("error")
		s.logger.Error("auction cache get failed", zap.String("ad_unit_id", adUnitID), zap.Error(err))
	} else {
		s.metrics.IncrementCacheLookups("miss")
	}

	unit, ok := s.units.GetAdUnit(adUnitID)
	if !ok || !unit.Active {
		return nil, ErrUnknownAdUnit
	}

	req := &models.BidRequest{
		AdUnitID:   adUnitID,
		AdType:     unit.Type,
		AppID:      unit.AppID,
		FloorPrice: unit.FloorPrice,
		Device:     opts.Device,
		Geo:        opts.Geo,
	}
	if opts.AppID != "" {
		req.AppID = opts.AppID
	}

	winner, err := s.runRound(ctx, req)
	if err != nil || winner == nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, adUnitID, winner, s.cfg.CacheTTL); err != nil {
		s.logger.Error("auction cache set failed", zap.String("ad_unit_id", adUnitID), zap.Error(err))
	}
	return winner, nil
}

// Bid runs one auction round for the given request. The ad unit's
// configuration fills in any fields the caller left unset. The winner is
// not cached; callers wanting the cache-aside path use GetAd.
func (s *Service) Bid(ctx context.Context, adUnitID string, req *models.BidRequest) (*models.BidResponse, error) {
	ctx, span := tracer.Start(ctx, "auction.Bid")
	defer span.End()
	span.SetAttributes(attribute.String("ad_unit_id", adUnitID))

	if req == nil {
		req = &models.BidRequest{}
	}
	req.AdUnitID = adUnitID

	if req.AdType == "" || req.FloorPrice == nil || req.AppID == "" {
		unit, ok := s.units.GetAdUnit(adUnitID)
		if !ok || !unit.Active {
			return nil, ErrUnknownAdUnit
		}
		if req.AdType == "" {
			req.AdType = unit.Type
		}
		if req.FloorPrice == nil {
			req.FloorPrice = unit.FloorPrice
		}
		if req.AppID == "" {
			req.AppID = unit.AppID
		}
	}

	s.emit(ctx, events.Event{Type: events.TypeRequest, AppID: req.AppID, AdUnitID: adUnitID})
	return s.runRound(ctx, req)
}

// runRound performs the shared auction flow: fan out, filter by floor,
// select, notify, record.
func (s *Service) runRound(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error) {
	if err := req.Validate(); err != nil {
		s.metrics.IncrementAuctions(outcomeError)
		s.emit(ctx, events.Event{
			Type:     events.TypeError,
			AppID:    req.AppID,
			AdUnitID: req.AdUnitID,
			Message:  err.Error(),
		})
		return nil, err
	}

	start := time.Now()
	adapters := s.registry.Adapters()
	responses := s.orch.RunAuction(ctx, req, adapters, s.cfg.BidTimeout)
	s.metrics.RecordAuctionDuration(time.Since(start))

	result := s.selectWinner(req, adapters, responses)

	for _, bid := range result.EligibleBids {
		s.emit(ctx, events.Event{
			Type:     events.TypeBid,
			AppID:    req.AppID,
			AdUnitID: req.AdUnitID,
			Platform: bid.Source,
			AdID:     bid.Ad.AdID,
			Price:    &bid.Price,
		})
		if err := s.stats.RecordBid(ctx, bid.Source, req.AdUnitID, bid.Price); err != nil {
			s.logger.Error("record bid stats failed", zap.String("platform", bid.Source), zap.Error(err))
		}
	}

	if result.NoFill() {
		s.metrics.IncrementAuctions(outcomeNoFill)
		s.emit(ctx, events.Event{Type: events.TypeNoFill, AppID: req.AppID, AdUnitID: req.AdUnitID})
		if observability.ShouldSample(observability.GetSamplingRate()) {
			s.logger.Info("no fill",
				zap.String("ad_unit_id", req.AdUnitID),
				zap.Int("responses", len(responses)))
		}
		return nil, nil
	}

	winner := result.Winner
	s.metrics.IncrementAuctions(outcomeWin)
	s.metrics.RecordWinPrice(winner.Price)

	s.notifyWin(winner)

	s.emit(ctx, events.Event{
		Type:     events.TypeWin,
		AppID:    req.AppID,
		AdUnitID: req.AdUnitID,
		Platform: winner.Source,
		AdID:     winner.Ad.AdID,
		Price:    &winner.Price,
	})
	if err := s.stats.RecordWin(ctx, winner.Source, req.AdUnitID, winner.Price); err != nil {
		s.logger.Error("record win stats failed", zap.String("platform", winner.Source), zap.Error(err))
	}
	if observability.ShouldSample(observability.GetSamplingRate()) {
		s.logger.Info("auction won",
			zap.String("ad_unit_id", req.AdUnitID),
			zap.String("platform", winner.Source),
			zap.Float64("price", winner.Price),
			zap.Int("eligible_bids", len(result.EligibleBids)))
	}
	return winner, nil
}

// selectWinner filters responses to the floor-eligible set and picks the
// strictly highest price. Ties break by adapter registration order: the
// scan walks adapters first-registered first and only a strictly greater
// price displaces the current leader.
func (s *Service) selectWinner(req *models.BidRequest, adapters []adnet.Adapter, responses []*models.BidResponse) *models.AuctionResult {
	floor, hasFloor := req.Floor()

	bySource := make(map[string]*models.BidResponse, len(responses))
	eligible := make([]*models.BidResponse, 0, len(responses))
	for _, r := range responses {
		if hasFloor && r.Price < floor {
			continue
		}
		eligible = append(eligible, r)
		bySource[strings.ToLower(r.Source)] = r
	}

	var winner *models.BidResponse
	for _, a := range adapters {
		bid, ok := bySource[strings.ToLower(a.Platform())]
		if !ok {
			continue
		}
		if winner == nil || bid.Price > winner.Price {
			winner = bid
		}
	}

	return &models.AuctionResult{Winner: winner, EligibleBids: eligible}
}

// notifyWin informs the winning platform, detached from the auction round
// so a slow callback cannot delay the response. A failed notification is a
// separate retryable concern; the winner stands regardless.
func (s *Service) notifyWin(winner *models.BidResponse) {
	adapter, ok := s.registry.Lookup(winner.Source)
	if !ok {
		s.logger.Warn("winning platform not registered", zap.String("platform", winner.Source))
		s.metrics.IncrementWinNotifications(winner.Source, "error")
		return
	}

	platform := winner.Source
	token := winner.BidToken
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WinNotifyTimeout)
		defer cancel()

		acked, err := adapter.NotifyWin(ctx, token)
		switch {
		case err != nil:
			s.metrics.IncrementWinNotifications(platform, "error")
			s.logger.Error("win notification failed",
				zap.String("platform", platform),
				zap.Error(err))
		case !acked:
			s.metrics.IncrementWinNotifications(platform, "rejected")
			s.logger.Warn("win notification rejected", zap.String("platform", platform))
		default:
			s.metrics.IncrementWinNotifications(platform, "ok")
		}
	}()
}

// emit records an event, logging sink failures without surfacing them.
func (s *Service) emit(ctx context.Context, ev events.Event) {
	ev.Timestamp = time.Now()
	if err := s.events.Emit(ctx, ev); err != nil {
		s.logger.Error("emit event failed",
			zap.String("event_type", string(ev.Type)),
			zap.String("ad_unit_id", ev.AdUnitID),
			zap.Error(err))
	}
}
