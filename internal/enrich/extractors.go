package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"calsync.casaflow.app/internal/ical"
)

// Input bundles the free-text fields extractors may draw from.
type Input struct {
	Summary     string
	Description string
	Attendees   []ical.Property
	Organizer   *ical.Property
}

// A StringExtractor recovers one optional value from an event's free text.
// Extractors run in order; the first non-nil result wins, so earlier
// entries in a chain must be the more trustworthy patterns.
type StringExtractor func(in Input) *string

type IntExtractor func(in Input) *int

func firstString(chain []StringExtractor, in Input) *string {
	for _, extract := range chain {
		if v := extract(in); v != nil {
			return v
		}
	}
	return nil
}

func firstInt(chain []IntExtractor, in Input) *int {
	for _, extract := range chain {
		if v := extract(in); v != nil {
			return v
		}
	}
	return nil
}

const (
	minNameLen  = 2
	maxNameLen  = 50
	minTitleLen = 3
	maxTitleLen = 100
	minRefLen   = 4
	maxRefLen   = 50
	maxGuests   = 50
)

// Tokens that look like names to the looser heuristics but never are.
var stopWords = map[string]bool{
	"listing":     true,
	"booking":     true,
	"booked":      true,
	"blocked":     true,
	"closed":      true,
	"confirmed":   true,
	"reserved":    true,
	"reservation": true,
	"unavailable": true,
	"not":         true,
	"airbnb":      true,
	"vrbo":        true,
	"agoda":       true,
	"expedia":     true,
}

var (
	// Booking.com style "Jane Doe (2)".
	summaryNameCountRe = regexp.MustCompile(`^\s*(.{2,50}?)\s*\((\d{1,2})\)\s*$`)
	// Airbnb style "Reservation confirmed – Jane Doe" (any dash flavor).
	reservationNameRe = regexp.MustCompile(
		`(?i)reservation(?:\s+\w+)?\s+confirmed\s*[-–—]\s*(.{2,50})`)
	// Labeled guest-name fields, English and Italian.
	labeledNameRe = regexp.MustCompile(
		`(?i)\b(?:guest(?:\s+name)?|ospite|name|nome|cliente)\s*:\s*([^\n\r,;(]{2,50})`)
	leadingWordsRe = regexp.MustCompile(
		`^([\p{L}'.-]+(?:\s+[\p{L}'.-]+)?)`)

	parenthesizedCountRe = regexp.MustCompile(`\((\d{1,2})\)`)
	labeledCountRe       = regexp.MustCompile(
		`(?i)\b(?:guests?|ospiti|pax|adults?|adulti|persone|people)\s*:?\s*(\d{1,2})\b`)

	labeledTitleRe = regexp.MustCompile(
		`(?i)\b(?:listing|property|apartment|proprietà|appartamento|alloggio|casa)\s*:\s*([^\n\r;]{3,100})`)
	numericOnlyRe = regexp.MustCompile(`^[\d\s.,-]+$`)

	labeledRefRe = regexp.MustCompile(
		`(?i)\b(?:reservation|booking|confirmation|prenotazione|conferma|codice|ref(?:erence)?|code)` +
			`\s*(?:number|no\.?|#)?\s*[:#]\s*([A-Za-z0-9-]{4,50})`)
	// 2-4 letters + 6-12 digits, the common OTA confirmation shape.
	letterDigitRefRe = regexp.MustCompile(`\b([A-Z]{2,4}\d{6,12})\b`)
	// Airbnb's long alphanumeric codes, always HM-prefixed.
	airbnbRefRe = regexp.MustCompile(`\b(HM[A-Z0-9]{6,12})\b`)
	bareDigitRefRe = regexp.MustCompile(`\b(\d{8,12})\b`)
)

var guestNameExtractors = []StringExtractor{
	attendeeCommonName,
	organizerCommonName,
	summaryNameWithCount,
	reservationConfirmedName,
	labeledGuestName,
	nameBeforeListingSplit,
	leadingWordsName,
}

func attendeeCommonName(in Input) *string {
	for _, attendee := range in.Attendees {
		if name := cleanName(attendee.Params["CN"]); name != nil {
			return name
		}
	}
	return nil
}

func organizerCommonName(in Input) *string {
	if in.Organizer == nil {
		return nil
	}
	return cleanName(in.Organizer.Params["CN"])
}

func summaryNameWithCount(in Input) *string {
	m := summaryNameCountRe.FindStringSubmatch(in.Summary)
	if m == nil {
		return nil
	}

	if n, err := strconv.Atoi(m[2]); err != nil || n < 1 || n > maxGuests {
		return nil
	}

	return cleanName(m[1])
}

func reservationConfirmedName(in Input) *string {
	for _, text := range []string{in.Summary, in.Description} {
		if m := reservationNameRe.FindStringSubmatch(text); m != nil {
			return cleanName(m[1])
		}
	}
	return nil
}

func labeledGuestName(in Input) *string {
	for _, text := range []string{in.Summary, in.Description} {
		if m := labeledNameRe.FindStringSubmatch(text); m != nil {
			return cleanName(m[1])
		}
	}
	return nil
}

func nameBeforeListingSplit(in Input) *string {
	left, _, found := strings.Cut(in.Summary, " - ")
	if !found {
		return nil
	}
	return cleanName(left)
}

func leadingWordsName(in Input) *string {
	m := leadingWordsRe.FindStringSubmatch(strings.TrimSpace(in.Summary))
	if m == nil {
		return nil
	}
	return cleanName(m[1])
}

// cleanName trims, bounds and stop-word-checks a name candidate.
func cleanName(raw string) *string {
	name := strings.TrimSpace(strings.Trim(raw, `"`))

	if len(name) < minNameLen || len(name) > maxNameLen {
		return nil
	}

	for _, word := range strings.Fields(strings.ToLower(name)) {
		if stopWords[word] {
			return nil
		}
	}

	return &name
}

var guestCountExtractors = []IntExtractor{
	parenthesizedGuestCount,
	labeledGuestCount,
}

func parenthesizedGuestCount(in Input) *int {
	return boundedCount(parenthesizedCountRe.FindStringSubmatch(in.Summary))
}

func labeledGuestCount(in Input) *int {
	for _, text := range []string{in.Summary, in.Description} {
		if count := boundedCount(labeledCountRe.FindStringSubmatch(text)); count != nil {
			return count
		}
	}
	return nil
}

func boundedCount(m []string) *int {
	if m == nil {
		return nil
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > maxGuests {
		return nil
	}

	return &n
}

var listingTitleExtractors = []StringExtractor{
	labeledListingTitle,
	colonSplitTitle,
	listingAfterNameSplit,
}

func labeledListingTitle(in Input) *string {
	for _, text := range []string{in.Summary, in.Description} {
		if m := labeledTitleRe.FindStringSubmatch(text); m != nil {
			return cleanTitle(m[1])
		}
	}
	return nil
}

func colonSplitTitle(in Input) *string {
	left, right, found := strings.Cut(in.Summary, ":")
	if !found || strings.TrimSpace(right) == "" {
		return nil
	}
	return cleanTitle(left)
}

func listingAfterNameSplit(in Input) *string {
	_, right, found := strings.Cut(in.Summary, " - ")
	if !found {
		return nil
	}
	return cleanTitle(right)
}

func cleanTitle(raw string) *string {
	title := strings.TrimSpace(raw)

	if len(title) < minTitleLen || len(title) > maxTitleLen {
		return nil
	}

	if numericOnlyRe.MatchString(title) {
		return nil
	}

	if stopWords[strings.ToLower(title)] {
		return nil
	}

	return &title
}

var sourceRefExtractors = []StringExtractor{
	labeledSourceRef,
	letterDigitSourceRef,
	airbnbSourceRef,
	bareDigitSourceRef,
}

func labeledSourceRef(in Input) *string {
	for _, text := range []string{in.Summary, in.Description} {
		if m := labeledRefRe.FindStringSubmatch(text); m != nil {
			return cleanRef(m[1])
		}
	}
	return nil
}

func letterDigitSourceRef(in Input) *string {
	return matchRef(letterDigitRefRe, in)
}

func airbnbSourceRef(in Input) *string {
	return matchRef(airbnbRefRe, in)
}

func bareDigitSourceRef(in Input) *string {
	return matchRef(bareDigitRefRe, in)
}

func matchRef(re *regexp.Regexp, in Input) *string {
	for _, text := range []string{in.Summary, in.Description} {
		if m := re.FindStringSubmatch(text); m != nil {
			return cleanRef(m[1])
		}
	}
	return nil
}

func cleanRef(raw string) *string {
	ref := strings.TrimSpace(raw)

	if len(ref) < minRefLen || len(ref) > maxRefLen {
		return nil
	}

	return &ref
}
