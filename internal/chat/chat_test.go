package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	apperrors "github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/store"
	"github.com/estudorank/estudorank/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) BroadcastChatMessage(msg *types.ChatMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func newTestService(pub Publisher) (*Service, *store.MemoryStore) {
	m := store.NewMemoryStore()
	m.CreateTable(messagesTable)
	svc := NewService(m, pub)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return svc, m
}

func TestPost(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("BroadcastChatMessage", mock.MatchedBy(func(msg *types.ChatMessage) bool {
		return msg.Content == "hello there" && msg.UserID == "u1"
	})).Return(nil).Once()
	svc, m := newTestService(pub)

	msg, err := svc.Post(context.Background(), "u1", "  hello there \n")

	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Content)
	assert.Len(t, msg.ID, 36)
	assert.Len(t, m.Rows(messagesTable), 1)
	pub.AssertExpectations(t)
}

func TestPostValidation(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"Empty", ""},
		{"Whitespace only", " \t\n "},
		{"Too long", strings.Repeat("a", MaxContentLength+1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pub := new(mockPublisher)
			svc, m := newTestService(pub)

			_, err := svc.Post(context.Background(), "u1", tc.content)

			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "content", vErr.Field)
			assert.Empty(t, m.Rows(messagesTable))
			pub.AssertNotCalled(t, "BroadcastChatMessage", mock.Anything)
		})
	}

	svc, _ := newTestService(nil)
	_, err := svc.Post(context.Background(), "u1", strings.Repeat("é", MaxContentLength))
	assert.NoError(t, err, "length counts characters, not bytes")
}

func TestPostBroadcastFailureStillStores(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("BroadcastChatMessage", mock.Anything).Return(fmt.Errorf("hub stopped"))
	svc, m := newTestService(pub)

	msg, err := svc.Post(context.Background(), "u1", "hi")

	require.NoError(t, err)
	assert.NotNil(t, msg)
	assert.Len(t, m.Rows(messagesTable), 1)
}

func TestPostInsertFailure(t *testing.T) {
	pub := new(mockPublisher)
	svc, m := newTestService(pub)
	m.Fail(messagesTable, fmt.Errorf("read-only transaction"))

	_, err := svc.Post(context.Background(), "u1", "hi")

	var dbErr *apperrors.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
	pub.AssertNotCalled(t, "BroadcastChatMessage", mock.Anything)
}

func TestRecent(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := svc.Post(ctx, "u1", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	messages, err := svc.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "message 3", messages[0].Content)
	assert.Equal(t, "message 5", messages[2].Content)

	all, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 10, ClampLimit(10))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
}
