package types

import (
	"time"

	"github.com/estudorank/estudorank/internal/leaderboard"
)

// Realtime event types pushed over /ws.
const (
	EventChatMessage       = "chat_message"
	EventLeaderboardUpdate = "leaderboard_update"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMessageEvent struct {
	Type    string       `json:"type"`
	Message *ChatMessage `json:"message"`
}

type LeaderboardUpdateEvent struct {
	Type        string              `json:"type"`
	Leaderboard []leaderboard.Entry `json:"leaderboard"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"pageSize"`
	Total       int                 `json:"total"`
	Pages       int                 `json:"pages"`
}

func NewLeaderboardUpdate(p *leaderboard.Page) LeaderboardUpdateEvent {
	return LeaderboardUpdateEvent{
		Type:        EventLeaderboardUpdate,
		Leaderboard: p.Entries,
		Page:        p.Page,
		PageSize:    p.PageSize,
		Total:       p.Total,
		Pages:       p.Pages,
	}
}
