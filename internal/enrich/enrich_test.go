package enrich_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"calsync.casaflow.app/internal/enrich"
	"calsync.casaflow.app/internal/ical"
)

func enrichSummary(summary string) enrich.Event {
	//nolint:exhaustruct //only free text matters here
	return enrich.Enrich(ical.Event{Summary: summary})
}

func TestGuestNameFromAttendeeWinsOverSummary(t *testing.T) {
	//nolint:exhaustruct //only relevant fields
	event := ical.Event{
		Summary: "Maria Rossi (2)",
		Attendees: []ical.Property{
			{Params: map[string]string{"CN": "Jane Doe"}, Value: "mailto:jane@example.com"},
		},
	}

	enriched := enrich.Enrich(event)

	assert.NotNil(t, enriched.GuestName)
	assert.Equal(t, "Jane Doe", *enriched.GuestName)
}

func TestGuestNameFromOrganizer(t *testing.T) {
	//nolint:exhaustruct //only relevant fields
	event := ical.Event{
		Summary:   "Blocked",
		Organizer: &ical.Property{Params: map[string]string{"CN": "John Smith"}, Value: "mailto:j@example.com"},
	}

	enriched := enrich.Enrich(event)

	assert.NotNil(t, enriched.GuestName)
	assert.Equal(t, "John Smith", *enriched.GuestName)
}

func TestGuestNameFromBookingStyleSummary(t *testing.T) {
	enriched := enrichSummary("Maria Rossi (2)")

	assert.NotNil(t, enriched.GuestName)
	assert.Equal(t, "Maria Rossi", *enriched.GuestName)
	assert.NotNil(t, enriched.GuestsCount)
	assert.Equal(t, 2, *enriched.GuestsCount)
}

func TestGuestNameFromReservationConfirmedSummary(t *testing.T) {
	enriched := enrichSummary("Reservation confirmed – Jane Doe")

	assert.NotNil(t, enriched.GuestName)
	assert.Equal(t, "Jane Doe", *enriched.GuestName)
}

func TestGuestNameFromLabeledField(t *testing.T) {
	//nolint:exhaustruct //only relevant fields
	event := ical.Event{
		Summary:     "Blocked",
		Description: "Ospite: Giulia Bianchi\nOspiti: 3",
	}

	enriched := enrich.Enrich(event)

	assert.NotNil(t, enriched.GuestName)
	assert.Equal(t, "Giulia Bianchi", *enriched.GuestName)
	assert.NotNil(t, enriched.GuestsCount)
	assert.Equal(t, 3, *enriched.GuestsCount)
}

func TestGuestNameFromDashSplit(t *testing.T) {
	enriched := enrichSummary("Jane Doe - Sea View Apartment")

	assert.NotNil(t, enriched.GuestName)
	assert.Equal(t, "Jane Doe", *enriched.GuestName)
	assert.NotNil(t, enriched.ListingTitle)
	assert.Equal(t, "Sea View Apartment", *enriched.ListingTitle)
}

func TestGuestNameRejectsStopWords(t *testing.T) {
	assert.Nil(t, enrichSummary("Airbnb (Not available)").GuestName)
	assert.Nil(t, enrichSummary("CLOSED - Not available").GuestName)
	assert.Nil(t, enrichSummary("Blocked").GuestName)
}

func TestGuestCountBounds(t *testing.T) {
	assert.Nil(t, enrichSummary("Crowd (0)").GuestsCount)
	assert.Nil(t, enrichSummary("Crowd (99)").GuestsCount)

	enriched := enrichSummary("Family (50)")
	assert.NotNil(t, enriched.GuestsCount)
	assert.Equal(t, 50, *enriched.GuestsCount)
}

func TestListingTitleFromLabel(t *testing.T) {
	//nolint:exhaustruct //only relevant fields
	event := ical.Event{
		Summary:     "Booked",
		Description: "Property: Trastevere Loft",
	}

	enriched := enrich.Enrich(event)

	assert.NotNil(t, enriched.ListingTitle)
	assert.Equal(t, "Trastevere Loft", *enriched.ListingTitle)
}

func TestListingTitleRejectsNumeric(t *testing.T) {
	//nolint:exhaustruct //only relevant fields
	event := ical.Event{
		Summary:     "Booked",
		Description: "Property: 12345",
	}

	assert.Nil(t, enrich.Enrich(event).ListingTitle)
}

func TestSourceRefFromLabel(t *testing.T) {
	//nolint:exhaustruct //only relevant fields
	event := ical.Event{
		Summary:     "Booked",
		Description: "Confirmation code: HMABC12345",
	}

	enriched := enrich.Enrich(event)

	assert.NotNil(t, enriched.SourceRef)
	assert.Equal(t, "HMABC12345", *enriched.SourceRef)
}

func TestSourceRefShapes(t *testing.T) {
	//nolint:exhaustruct //only relevant fields
	letterDigit := enrich.Enrich(ical.Event{Description: "ref BDC123456789 attached"})
	assert.NotNil(t, letterDigit.SourceRef)
	assert.Equal(t, "BDC123456789", *letterDigit.SourceRef)

	//nolint:exhaustruct //only relevant fields
	bareDigits := enrich.Enrich(ical.Event{Description: "stay 4217653980"})
	assert.NotNil(t, bareDigits.SourceRef)
	assert.Equal(t, "4217653980", *bareDigits.SourceRef)
}

func TestEnrichEmptyEventYieldsNothing(t *testing.T) {
	//nolint:exhaustruct //intentionally empty
	enriched := enrich.Enrich(ical.Event{})

	assert.Nil(t, enriched.GuestName)
	assert.Nil(t, enriched.GuestsCount)
	assert.Nil(t, enriched.ListingTitle)
	assert.Nil(t, enriched.SourceRef)
}
