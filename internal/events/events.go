// Package events defines the user lifecycle messages the user service
// publishes and the advisor consumes.
package events

import (
	"time"

	"github.com/carwash-app/carwash/internal/calendar"
)

const (
	TopicUserCreated = "user.created"
	TopicUserUpdated = "user.updated"
)

// Topics lists every topic the advisor subscribes to.
var Topics = []string{TopicUserCreated, TopicUserUpdated}

type UserEvent struct {
	Type                  string         `json:"type"`
	UserID                string         `json:"user_id"`
	Username              string         `json:"username"`
	City                  *string        `json:"city"`
	Country               *string        `json:"country"`
	LastWashDate          *calendar.Date `json:"last_wash_date"`
	PreferredWashInterval int            `json:"preferred_wash_interval"`
	OccurredAt            time.Time      `json:"occurred_at"`
}
