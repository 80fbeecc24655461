package sync

import (
	"time"

	"ehonhub/pkg/models"
)

const EventRankingRebuilt = "ranking.rebuilt"

type RankingEvent struct {
	Type    string    `json:"type"` // always "ranking.rebuilt"
	BuildID string    `json:"build_id"`
	Mode    string    `json:"mode"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}

// NewRankingEvent describes a snapshot that was just stored.
func NewRankingEvent(s models.Snapshot) RankingEvent {
	return RankingEvent{
		Type:    EventRankingRebuilt,
		BuildID: s.BuildID,
		Mode:    s.Mode,
		Count:   len(s.Ranking),
		At:      s.GeneratedAt,
	}
}
