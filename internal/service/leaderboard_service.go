package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/normalize"
	"github.com/dafibh/contribboard/contribboard-backend/internal/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/text/message"
)

// DefaultQualifyingPRs is the contribution count that completes the event
const DefaultQualifyingPRs = 6

// LeaderboardConfig holds configuration for the leaderboard
type LeaderboardConfig struct {
	QualifyingPRs int
}

// LeaderboardService keeps a live leaderboard built from the registrant tree.
// It holds one subscription at a time and republishes every board it builds.
type LeaderboardService struct {
	remote         domain.RemoteStore
	logger         zerolog.Logger
	qualifyingPRs  int
	eventPublisher websocket.EventPublisher
	now            func() time.Time

	mu         sync.RWMutex
	ctx        context.Context
	cancel     func()
	generation int
	board      domain.Board
}

// NewLeaderboardService creates a new LeaderboardService
func NewLeaderboardService(remote domain.RemoteStore, logger zerolog.Logger, config LeaderboardConfig) *LeaderboardService {
	if config.QualifyingPRs <= 0 {
		config.QualifyingPRs = DefaultQualifyingPRs
	}

	return &LeaderboardService{
		remote:        remote,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		qualifyingPRs: config.QualifyingPRs,
		now:           time.Now,
		board: domain.Board{
			Standings:     []domain.Standing{},
			QualifyingPRs: config.QualifyingPRs,
			Loading:       true,
		},
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LeaderboardService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *LeaderboardService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(websocket.TopicLeaderboard, event)
	}
}

// Start subscribes to the registrant tree. The subscription lives until ctx
// ends. Calling Start again is a no-op.
func (s *LeaderboardService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return
	}
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info().
		Str("path", domain.RegistersPath).
		Int("qualifying_prs", s.qualifyingPRs).
		Msg("Starting leaderboard subscription")

	s.attach()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
		s.logger.Info().Msg("Leaderboard subscription stopped")
	}()
}

// Reload resets the loading and error state and attaches a fresh
// subscription, replacing the current one. It starts the service with a
// background context when Start was never called.
func (s *LeaderboardService) Reload() {
	s.mu.RLock()
	started := s.ctx != nil
	s.mu.RUnlock()

	if !started {
		s.Start(context.Background())
		return
	}

	s.logger.Info().Msg("Reloading leaderboard subscription")
	s.attach()
}

// Board returns the latest leaderboard
func (s *LeaderboardService) Board() domain.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBoard(s.board)
}

// QualifyingPRs is the contribution count that marks a registrant as qualified
func (s *LeaderboardService) QualifyingPRs() int {
	return s.qualifyingPRs
}

func (s *LeaderboardService) attach() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	gen := s.generation
	ctx := s.ctx
	s.board = domain.Board{
		Standings:     s.board.Standings,
		QualifyingPRs: s.qualifyingPRs,
		Loading:       true,
		UpdatedAt:     s.board.UpdatedAt,
	}
	s.mu.Unlock()

	cancel := s.remote.Subscribe(ctx, domain.RegistersPath,
		func(snap domain.Snapshot) { s.onValue(gen, snap) },
		func(err error) { s.onError(gen, err) },
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		cancel()
		return
	}
	s.cancel = cancel
}

func (s *LeaderboardService) onValue(gen int, snap domain.Snapshot) {
	board := BuildBoard(snap.Value, s.qualifyingPRs, s.now())

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.board = board
	s.mu.Unlock()

	s.logger.Debug().
		Int("registrants", board.TotalRegistrants).
		Int("contributions", board.TotalContributions).
		Msg("Leaderboard updated")

	s.publishEvent(websocket.LeaderboardUpdated(copyBoard(board)))
}

func (s *LeaderboardService) onError(gen int, err error) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.board.Loading = false
	s.board.Error = err.Error()
	s.board.PermissionDenied = domain.IsPermissionDenied(err)
	board := copyBoard(s.board)
	s.mu.Unlock()

	s.logger.Error().
		Err(err).
		Bool("permission_denied", board.PermissionDenied).
		Msg("Leaderboard subscription failed")

	s.publishEvent(websocket.LeaderboardFailed(board))
}

// BuildBoard computes the leaderboard for the value stored at the registrants
// root. Rows are ordered by contribution count, highest first; equal counts keep
// their parse order.
func BuildBoard(raw any, qualifyingPRs int, now time.Time) domain.Board {
	parsed := normalize.ParseRegistrants(raw)

	standings := make([]domain.Standing, 0, len(parsed.Entries))
	total := 0
	for _, e := range parsed.Entries {
		count := e.Profile.ContributionCount()
		total += count
		standings = append(standings, domain.Standing{
			USN:           e.USN,
			Name:          displayName(e),
			GitHub:        orPlaceholder(e.Profile.GitHub),
			Holopin:       orPlaceholder(e.Profile.Holopin),
			Contributions: count,
			Qualified:     qualifyingPRs > 0 && count >= qualifyingPRs,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Contributions > standings[j].Contributions
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}

	return domain.Board{
		Standings:          standings,
		TotalRegistrants:   len(standings),
		TotalContributions: total,
		QualifyingPRs:      qualifyingPRs,
		UpdatedAt:          now.UTC(),
	}
}

// RenderText writes the board as a plain-text table followed by its totals
func RenderText(board domain.Board, p *message.Printer) string {
	var b strings.Builder

	switch {
	case board.PermissionDenied:
		p.Fprintf(&b, "Permission denied reading the leaderboard: %s\n", board.Error)
		return b.String()
	case board.Error != "":
		p.Fprintf(&b, "Leaderboard unavailable: %s\n", board.Error)
		return b.String()
	case board.Loading:
		p.Fprintf(&b, "Loading leaderboard...\n")
		return b.String()
	}

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	p.Fprintf(w, "#\tName\tGitHub\tHolopin\tContributions\n")
	for _, row := range board.Standings {
		p.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", row.Rank, row.Name, row.GitHub, row.Holopin, row.Contributions)
	}
	w.Flush()

	p.Fprintf(&b, "\nRegistrants: %d  Contributions: %d\n", board.TotalRegistrants, board.TotalContributions)
	return b.String()
}

func displayName(e normalize.Entry) string {
	switch {
	case e.Profile.Name != "":
		return e.Profile.Name
	case e.USN != "":
		return e.USN
	default:
		return domain.MissingNamePlaceholder
	}
}

func orPlaceholder(link string) string {
	if link == "" {
		return domain.MissingLinkPlaceholder
	}
	return link
}

func copyBoard(b domain.Board) domain.Board {
	c := b
	c.Standings = make([]domain.Standing, len(b.Standings))
	copy(c.Standings, b.Standings)
	return c
}
