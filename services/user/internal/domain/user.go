package domain

import (
	"time"

	"github.com/carwash-app/carwash/internal/calendar"
)

const (
	DefaultWashInterval = 7
	DefaultCountry      = "Unknown"
	MaxUsernameLength   = 20
)

type User struct {
	ID                    string         `json:"id"`
	Username              string         `json:"username"`
	Email                 string         `json:"email"`
	HashedPassword        string         `json:"-"`
	City                  *string        `json:"city"`
	Country               *string        `json:"country"`
	LastWashDate          *calendar.Date `json:"last_wash_date"`
	PreferredWashInterval int            `json:"preferred_wash_interval"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             *time.Time     `json:"updated_at"`
}

type NewUser struct {
	Username              string
	Email                 string
	Password              string
	City                  *string
	Country               *string
	PreferredWashInterval int
}

// UserPatch holds the optional fields of a profile update. Nil means unchanged.
type UserPatch struct {
	City                  *string
	Country               *string
	LastWashDate          *calendar.Date
	PreferredWashInterval *int
}

func (p UserPatch) Empty() bool {
	return p.City == nil && p.Country == nil && p.LastWashDate == nil && p.PreferredWashInterval == nil
}
