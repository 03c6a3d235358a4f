package certificate

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DisplayLayout is the form printed on certificates, e.g. "January 5, 2025".
const DisplayLayout = "January 2, 2006"

var displayPattern = regexp.MustCompile(`^(January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4}$`)

// order matters: month-first wins over day-first for ambiguous inputs
var inputLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"1/2/2006",
}

// NormalizeDate renders a loosely formatted date in DisplayLayout.
// Input that cannot be parsed is returned as is.
func NormalizeDate(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return input
	}
	if displayPattern.MatchString(value) {
		return value
	}

	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DisplayLayout)
		}
	}

	if t, err := dateparse.ParseAny(value); err == nil {
		return t.Format(DisplayLayout)
	}

	return input
}
