package scheduler

import (
	"context"
	"time"

	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/robfig/cron/v3"
)

const publishTimeout = 15 * time.Second

type Resolver interface {
	Resolve(ctx context.Context, p leaderboard.Params) (*leaderboard.Page, error)
}

type Broadcaster interface {
	BroadcastLeaderboardUpdate(page *leaderboard.Page) error
}

// LeaderboardPublisher pushes the first leaderboard page to realtime clients.
type LeaderboardPublisher struct {
	resolver Resolver
	hub      Broadcaster
}

func NewLeaderboardPublisher(resolver Resolver, hub Broadcaster) *LeaderboardPublisher {
	return &LeaderboardPublisher{resolver: resolver, hub: hub}
}

func (p *LeaderboardPublisher) Publish(ctx context.Context) error {
	page, err := p.resolver.Resolve(ctx, leaderboard.Params{Page: leaderboard.DefaultPage, PageSize: leaderboard.DefaultPageSize})
	if err != nil {
		return err
	}
	if err := p.hub.BroadcastLeaderboardUpdate(page); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"source": page.Source,
		"total":  page.Total,
	}).Debug("Leaderboard update published")
	return nil
}

// LeaderboardChanged publishes in the background so the caller's request
// is not held up by the resolve.
func (p *LeaderboardPublisher) LeaderboardChanged(context.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx); err != nil {
			logger.Warn("Failed to publish leaderboard update: %v", err)
		}
	}()
}

type LeaderboardScheduler struct {
	cron      *cron.Cron
	publisher *LeaderboardPublisher
	spec      string
}

func NewLeaderboardScheduler(publisher *LeaderboardPublisher, spec string) *LeaderboardScheduler {
	return &LeaderboardScheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		publisher: publisher,
		spec:      spec,
	}
}

func (s *LeaderboardScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.publish)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Leaderboard scheduler started (%s)", s.spec)
	return nil
}

func (s *LeaderboardScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Leaderboard scheduler stopped")
}

func (s *LeaderboardScheduler) publish() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx); err != nil {
		logger.Error("Scheduled leaderboard publish failed: %v", err)
	}
}
