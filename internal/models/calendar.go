package models

import (
	"fmt"
	"strings"
	"time"
)

const DateFormat = "2006-01-02"

// CalendarBlock marks a property unavailable for a date range. Rows are
// maintained by the sync engine: created on first sighting of an external
// event, updated in place on later syncs and deactivated (never deleted)
// when the source cancels the event.
type CalendarBlock struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"propertyId"`
	HostID     string     `json:"hostId"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    time.Time  `json:"endDate"`
	Reason     string     `json:"reason"`
	Source     string     `json:"source"`
	ExternalID string     `json:"externalId"`
	IsActive   bool       `json:"isActive"`
	CreatedBy  *string    `json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FeedRegistration links a property to a remote OTA calendar URL.
// Registrations come from the ical_urls table or, for legacy accounts,
// from accounts.ics_pull_url.
type FeedRegistration struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	HostID     string `json:"hostId"`
	Channel    string `json:"channel"`
	URL        string `json:"url"`
}

// BlockSource builds the source written on calendar blocks for a channel,
// e.g. "ical_airbnb".
func BlockSource(channel string) string {
	return fmt.Sprintf("ical_%s", strings.ToLower(strings.TrimSpace(channel)))
}
