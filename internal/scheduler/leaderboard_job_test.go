package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, p leaderboard.Params) (*leaderboard.Page, error) {
	args := m.Called(ctx, p)
	page, _ := args.Get(0).(*leaderboard.Page)
	return page, args.Error(1)
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastLeaderboardUpdate(page *leaderboard.Page) error {
	return m.Called(page).Error(0)
}

var firstPage = leaderboard.Params{Page: 1, PageSize: 25}

func TestPublish(t *testing.T) {
	page := &leaderboard.Page{Entries: []leaderboard.Entry{{UserID: "u1", Points: 5, Total: 5}}, Page: 1, PageSize: 25, Total: 1, Pages: 1}

	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, firstPage).Return(page, nil)
	hub := new(mockBroadcaster)
	hub.On("BroadcastLeaderboardUpdate", page).Return(nil)

	err := NewLeaderboardPublisher(resolver, hub).Publish(context.Background())

	assert.NoError(t, err)
	resolver.AssertExpectations(t)
	hub.AssertExpectations(t)
}

func TestPublishResolveFailure(t *testing.T) {
	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, firstPage).Return(nil, fmt.Errorf("all sources failed"))
	hub := new(mockBroadcaster)

	err := NewLeaderboardPublisher(resolver, hub).Publish(context.Background())

	assert.Error(t, err)
	hub.AssertNotCalled(t, "BroadcastLeaderboardUpdate", mock.Anything)
}

func TestLeaderboardChangedPublishesAsync(t *testing.T) {
	page := &leaderboard.Page{Entries: []leaderboard.Entry{}, Page: 1, PageSize: 25, Pages: 1}
	published := make(chan struct{}, 1)

	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, firstPage).Return(page, nil)
	hub := new(mockBroadcaster)
	hub.On("BroadcastLeaderboardUpdate", page).Return(nil).Run(func(mock.Arguments) {
		published <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	NewLeaderboardPublisher(resolver, hub).LeaderboardChanged(ctx)
	cancel()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("leaderboard update was not published")
	}
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewLeaderboardScheduler(NewLeaderboardPublisher(new(mockResolver), new(mockBroadcaster)), "not a cron spec")

	assert.Error(t, s.Start())
}

func TestSchedulerRunsJob(t *testing.T) {
	page := &leaderboard.Page{Entries: []leaderboard.Entry{}, Page: 1, PageSize: 25, Pages: 1}
	published := make(chan struct{}, 10)

	resolver := new(mockResolver)
	resolver.On("Resolve", mock.Anything, firstPage).Return(page, nil)
	hub := new(mockBroadcaster)
	hub.On("BroadcastLeaderboardUpdate", page).Return(nil).Run(func(mock.Arguments) {
		published <- struct{}{}
	})

	s := NewLeaderboardScheduler(NewLeaderboardPublisher(resolver, hub), "@every 1s")
	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case <-published:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}
