package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// MatchService
// ──────────────────────────────────────────────────────────────────────────────

// MatchService owns the fixture lifecycle: creation (manual or imported from
// the feed), listing, and the scheduled→live transition at kickoff.
type MatchService struct {
	matchRepo *repository.MatchRepository
	fixtures  *FixtureService
	logger    *slog.Logger
}

func NewMatchService(matchRepo *repository.MatchRepository, fixtures *FixtureService, logger *slog.Logger) *MatchService {
	return &MatchService{
		matchRepo: matchRepo,
		fixtures:  fixtures,
		logger:    logger,
	}
}

// CreateMatchRequest carries the inputs for a manually created match.
// Seed pools are optional display ballast: they shape the opening odds but
// belong to the house, not to any prediction, and are paid out to nobody.
type CreateMatchRequest struct {
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	ExternalRef string    `json:"external_ref"`
	MatchDate   time.Time `json:"match_date"`
	SeedHome    int64     `json:"seed_home"`
	SeedDraw    int64     `json:"seed_draw"`
	SeedAway    int64     `json:"seed_away"`
}

// CreateMatch registers a new scheduled match.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (*domain.Match, error) {
	req.HomeTeam = strings.TrimSpace(req.HomeTeam)
	req.AwayTeam = strings.TrimSpace(req.AwayTeam)
	if req.HomeTeam == "" || req.AwayTeam == "" {
		return nil, fmt.Errorf("match_service.CreateMatch: %w: team names required", domain.ErrInvalidMatch)
	}
	if !req.MatchDate.After(time.Now()) {
		return nil, fmt.Errorf("match_service.CreateMatch: %w: kickoff must be in the future", domain.ErrInvalidMatch)
	}
	if req.SeedHome < 0 || req.SeedDraw < 0 || req.SeedAway < 0 {
		return nil, fmt.Errorf("match_service.CreateMatch: %w: negative seed pool", domain.ErrInvalidMatch)
	}

	m := &domain.Match{
		ID:          uuid.New(),
		HomeTeam:    req.HomeTeam,
		AwayTeam:    req.AwayTeam,
		ExternalRef: req.ExternalRef,
		Status:      domain.MatchScheduled,
		MatchDate:   req.MatchDate,
		HomePool:    req.SeedHome,
		DrawPool:    req.SeedDraw,
		AwayPool:    req.SeedAway,
		TotalPool:   req.SeedHome + req.SeedDraw + req.SeedAway,
	}
	if err := s.matchRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("match_service.CreateMatch: %w", err)
	}

	s.logger.Info("match created",
		"match_id", m.ID,
		"home", m.HomeTeam,
		"away", m.AwayTeam,
		"kickoff", m.MatchDate,
		"seed_total", m.TotalPool,
	)
	return m, nil
}

// GetMatch returns one match by ID.
func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	return s.matchRepo.GetByID(ctx, id)
}

// ListMatches returns matches filtered by status. An empty status lists all.
func (s *MatchService) ListMatches(ctx context.Context, status domain.MatchStatus, limit, offset int) ([]*domain.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.matchRepo.List(ctx, status, limit, offset)
}

// ListUpcoming returns scheduled matches still open for predictions, as
// summaries with live odds.
func (s *MatchService) ListUpcoming(ctx context.Context, limit int) ([]domain.MatchSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	matches, err := s.matchRepo.ListUpcoming(ctx, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("match_service.ListUpcoming: %w", err)
	}
	summaries := make([]domain.MatchSummary, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, m.ToSummary())
	}
	return summaries, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Feed import & kickoff transition (called by the scheduler)
// ──────────────────────────────────────────────────────────────────────────────

// SyncFixtures imports upcoming fixtures from the feed that are not yet
// known, keyed by external ref. Returns how many were created.
func (s *MatchService) SyncFixtures(ctx context.Context) (int, error) {
	fixtures, err := s.fixtures.FetchUpcoming(ctx)
	if err != nil {
		return 0, fmt.Errorf("match_service.SyncFixtures: %w", err)
	}

	created := 0
	for _, f := range fixtures {
		if f.Ref == "" || !f.Kickoff.After(time.Now()) {
			continue
		}
		_, err := s.matchRepo.GetByExternalRef(ctx, f.Ref)
		if err == nil {
			continue // already imported
		}
		if !domain.IsNotFound(err) {
			return created, fmt.Errorf("match_service.SyncFixtures: lookup %s: %w", f.Ref, err)
		}

		m := &domain.Match{
			ID:          uuid.New(),
			HomeTeam:    f.HomeTeam,
			AwayTeam:    f.AwayTeam,
			ExternalRef: f.Ref,
			Status:      domain.MatchScheduled,
			MatchDate:   f.Kickoff,
		}
		if err := s.matchRepo.Create(ctx, m); err != nil {
			return created, fmt.Errorf("match_service.SyncFixtures: create %s: %w", f.Ref, err)
		}
		created++
	}

	if created > 0 {
		s.logger.Info("fixtures imported", "created", created, "seen", len(fixtures))
	}
	return created, nil
}

// PromoteKickoffs flips every scheduled match past kickoff to live, closing
// it to further predictions. Returns how many rows changed.
func (s *MatchService) PromoteKickoffs(ctx context.Context) (int64, error) {
	n, err := s.matchRepo.MarkLive(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("match_service.PromoteKickoffs: %w", err)
	}
	if n > 0 {
		s.logger.Info("matches went live", "count", n)
	}
	return n, nil
}

// SettlementCandidates returns started matches that are not settled yet; the
// settlement poller asks the feed for their results.
func (s *MatchService) SettlementCandidates(ctx context.Context) ([]*domain.Match, error) {
	return s.matchRepo.ListUnsettledStarted(ctx, time.Now())
}
