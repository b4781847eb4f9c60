// Package enrich recovers best-effort guest metadata from the free-text
// fields of parsed calendar events. Everything here is heuristic: every
// extractor either returns a value or nil, absence is a normal outcome and
// enrichment can never fail. Used on the preview path only; the sync
// engine persists blocks without it.
package enrich

import (
	"calsync.casaflow.app/internal/ical"
)

// Event is a parsed calendar event plus whatever metadata the extractor
// chains managed to recover.
type Event struct {
	ical.Event

	GuestName    *string `json:"guestName"`
	GuestsCount  *int    `json:"guestsCount"`
	ListingTitle *string `json:"listingTitle"`
	SourceRef    *string `json:"sourceRef"`
}

func Enrich(event ical.Event) Event {
	in := Input{
		Summary:     event.Summary,
		Description: event.Description,
		Attendees:   event.Attendees,
		Organizer:   event.Organizer,
	}

	return Event{
		Event:        event,
		GuestName:    firstString(guestNameExtractors, in),
		GuestsCount:  firstInt(guestCountExtractors, in),
		ListingTitle: firstString(listingTitleExtractors, in),
		SourceRef:    firstString(sourceRefExtractors, in),
	}
}
