// Package chat stores chat messages and fans new ones out to connected
// sockets on a best-effort basis.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/store"
	"github.com/estudorank/estudorank/internal/types"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/google/uuid"
)

const (
	messagesTable = "messages"

	MaxContentLength = 2000
	DefaultLimit     = 50
	MaxLimit         = 200
)

type Message = types.ChatMessage

type Publisher interface {
	BroadcastChatMessage(msg *types.ChatMessage) error
}

type Service struct {
	store     store.Store
	publisher Publisher
	now       func() time.Time
}

// NewService returns a chat service. publisher may be nil.
func NewService(s store.Store, publisher Publisher) *Service {
	return &Service{
		store:     s,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func messageFromRow(r store.Row) Message {
	return Message{
		ID:        r.String("id"),
		UserID:    r.String("user_id"),
		Content:   r.String("content"),
		CreatedAt: r.Time("created_at"),
	}
}

// Post stores a message from userID and broadcasts it. A failed broadcast
// is logged; the message is still stored.
func (s *Service) Post(ctx context.Context, userID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &errors.ValidationError{Field: "content", Message: "must not be empty"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, &errors.ValidationError{Field: "content", Message: fmt.Sprintf("must be at most %d characters", MaxContentLength)}
	}

	row := store.Row{
		"id":         uuid.New().String(),
		"user_id":    userID,
		"content":    content,
		"created_at": s.now(),
	}
	if _, err := s.store.Insert(ctx, messagesTable, row); err != nil {
		return nil, err
	}

	msg := messageFromRow(row)
	if s.publisher != nil {
		if err := s.publisher.BroadcastChatMessage(&msg); err != nil {
			logger.Warn("Failed to broadcast chat message %s: %v", msg.ID, err)
		}
	}
	return &msg, nil
}

// ClampLimit applies the default and maximum to a requested limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Recent returns the newest messages in chronological order.
func (s *Service) Recent(ctx context.Context, limit int) ([]Message, error) {
	limit = ClampLimit(limit)
	res, err := s.store.Select(ctx, store.From(messagesTable).
		Order("created_at", true).
		Order("id", true).
		WithLimit(limit))
	if err != nil {
		return nil, err
	}

	messages := make([]Message, len(res.Rows))
	for i, r := range res.Rows {
		messages[len(res.Rows)-1-i] = messageFromRow(r)
	}
	return messages, nil
}
