// Package scheduler manages the three background goroutines that run the
// match prediction lifecycle:
//  1. fixtureSyncLoop – imports upcoming fixtures from the feed.
//  2. kickoffLoop     – flips scheduled matches to live when kickoff passes.
//  3. settlementLoop  – polls results for started matches and settles/refunds.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tribunapp/prediction/internal/config"
	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/service"
)

// kickoffPollInterval is how often scheduled matches are checked against the
// clock. Independent of the feed intervals in config.
const kickoffPollInterval = 15 * time.Second

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler wires together the services and runs the three lifecycle
// goroutines. Call Start(ctx) once from main(); cancel the context to shut
// it down gracefully.
type Scheduler struct {
	matchSvc      *service.MatchService
	settlementSvc *service.SettlementService
	fixtureSvc    *service.FixtureService
	cfg           *config.Config
	logger        *slog.Logger
	restartDelay  time.Duration // pause before relaunching a loop that panicked
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	matchSvc *service.MatchService,
	settlementSvc *service.SettlementService,
	fixtureSvc *service.FixtureService,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		matchSvc:      matchSvc,
		settlementSvc: settlementSvc,
		fixtureSvc:    fixtureSvc,
		cfg:           cfg,
		logger:        logger,
		restartDelay:  5 * time.Second,
	}
}

// Start launches the three background goroutines.  It returns immediately;
// all loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.runLoop(ctx, "fixtureSyncLoop", s.fixtureSyncLoop)
	go s.runLoop(ctx, "kickoffLoop", s.kickoffLoop)
	go s.runLoop(ctx, "settlementLoop", s.settlementLoop)
	s.logger.Info("scheduler started",
		"sync_interval", s.cfg.Feed.SyncInterval,
		"settle_interval", s.cfg.Feed.SettleInterval,
	)
}

// runLoop keeps one lifecycle loop alive until ctx is cancelled. A panic in
// the loop is logged and the loop is relaunched after restartDelay; a normal
// return means ctx was cancelled and the goroutine exits.
func (s *Scheduler) runLoop(ctx context.Context, name string, fn func(context.Context)) {
	for {
		panicked := func() (panicked bool) {
			defer func() {
				if r := recover(); r != nil {
					panicked = true
					s.logger.Error("PANIC recovered in scheduler loop",
						"loop", name, "panic", r)
				}
			}()
			fn(ctx)
			return false
		}()
		if !panicked {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.restartDelay):
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// fixtureSyncLoop
// ──────────────────────────────────────────────────────────────────────────────

// fixtureSyncLoop imports upcoming fixtures every SyncInterval. An immediate
// first run happens at startup so a fresh deployment has matches to show.
func (s *Scheduler) fixtureSyncLoop(ctx context.Context) {
	s.syncFixtures(ctx)

	ticker := time.NewTicker(s.cfg.Feed.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("fixtureSyncLoop: shutting down")
			return
		case <-ticker.C:
			s.syncFixtures(ctx)
		}
	}
}

func (s *Scheduler) syncFixtures(ctx context.Context) {
	if _, err := s.matchSvc.SyncFixtures(ctx); err != nil {
		s.logger.Error("fixtureSyncLoop: sync failed", "err", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// kickoffLoop
// ──────────────────────────────────────────────────────────────────────────────

// kickoffLoop closes matches to predictions the moment their kickoff passes.
// Placement independently rejects stakes on past-kickoff matches, so this
// loop only has to keep the displayed status honest, not guard correctness.
func (s *Scheduler) kickoffLoop(ctx context.Context) {
	ticker := time.NewTicker(kickoffPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("kickoffLoop: shutting down")
			return
		case <-ticker.C:
			if _, err := s.matchSvc.PromoteKickoffs(ctx); err != nil {
				s.logger.Error("kickoffLoop: promote failed", "err", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// settlementLoop
// ──────────────────────────────────────────────────────────────────────────────

// settlementLoop polls the feed for results of started, unsettled matches
// every SettleInterval and settles or refunds them. ErrAlreadySettled means
// another run (or an admin) got there first and is logged as a no-op.
func (s *Scheduler) settlementLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Feed.SettleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlementLoop: shutting down")
			return
		case <-ticker.C:
			s.settleDueMatches(ctx)
		}
	}
}

// settleDueMatches runs one settlement sweep over the started, unsettled
// matches.
func (s *Scheduler) settleDueMatches(ctx context.Context) {
	candidates, err := s.matchSvc.SettlementCandidates(ctx)
	if err != nil {
		s.logger.Error("settlementLoop: listing candidates", "err", err)
		return
	}

	for _, m := range candidates {
		if m.ExternalRef == "" {
			continue // manual match, settled via backoffice only
		}
		result, err := s.fixtureSvc.FetchResult(ctx, m.ExternalRef)
		if err != nil {
			s.logger.Warn("settlementLoop: result fetch failed",
				"match_id", m.ID, "ref", m.ExternalRef, "err", err)
			continue
		}
		if !result.Final() {
			continue // still in play
		}

		switch result.Status {
		case service.FeedStatusFinished:
			_, err = s.settlementSvc.SettleMatch(ctx, m.ID, result.HomeScore, result.AwayScore)
		case service.FeedStatusPostponed:
			_, err = s.settlementSvc.RefundMatch(ctx, m.ID)
		}
		if err != nil {
			if errors.Is(err, domain.ErrAlreadySettled) {
				s.logger.Info("settlementLoop: already settled", "match_id", m.ID)
				continue
			}
			s.logger.Error("settlementLoop: settle failed", "match_id", m.ID, "err", err)
		}
	}
}
