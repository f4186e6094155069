// Package timestamp turns the date spellings found on Indonesian news index
// pages into absolute instants.
package timestamp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WIB is Western Indonesian Time, the zone every supported site publishes
// in.
var WIB = time.FixedZone("WIB", 7*60*60)

// ErrNoOffset is returned when a relative time phrase names no unit at all.
var ErrNoOffset = errors.New("no relative offset in text")

var months = map[string]string{
	"Mei":       "May",
	"Agu":       "Aug",
	"Agt":       "Aug",
	"Okt":       "Oct",
	"Des":       "Dec",
	"Januari":   "Jan",
	"Februari":  "Feb",
	"Maret":     "Mar",
	"April":     "Apr",
	"Juni":      "Jun",
	"Juli":      "Jul",
	"Agustus":   "Aug",
	"September": "Sep",
	"Oktober":   "Oct",
	"November":  "Nov",
	"Desember":  "Dec",
}

var zoneSuffixes = map[string]bool{
	"WIB":  true,
	"WITA": true,
	"WIT":  true,
}

// LocalizedMonth maps an Indonesian month spelling to the English
// abbreviation understood by time.Parse. Other tokens are returned as is.
func LocalizedMonth(token string) string {
	if canonical, ok := months[token]; ok {
		return canonical
	}
	return token
}

// StripZone drops commas and trailing zone names such as "WIB".
func StripZone(text string) string {
	fields := strings.Fields(strings.ReplaceAll(text, ",", ""))
	kept := fields[:0]
	for _, field := range fields {
		if zoneSuffixes[strings.ToUpper(field)] {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// ParseLocal parses text with a Go layout after localizing month names and
// stripping the zone suffix. The result is in WIB.
func ParseLocal(layout, text string) (time.Time, error) {
	fields := strings.Fields(StripZone(text))
	for i, field := range fields {
		fields[i] = LocalizedMonth(field)
	}

	t, err := time.ParseInLocation(layout, strings.Join(fields, " "), WIB)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", text, err)
	}
	return t, nil
}

// DatedToken parses a yyyymmddhhmmss token such as the one embedded in
// article URLs.
func DatedToken(token string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102150405", token, WIB)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse url date %q: %w", token, err)
	}
	return t, nil
}

// RelativeOffset subtracts a calendar offset from now. Years and months
// clamp the day to the length of the target month, so 31 March minus one
// month is the last day of February. Days are calendar days; hours and
// minutes are plain durations.
func RelativeOffset(now time.Time, years, months, days, hours, minutes int) time.Time {
	y, m, d := now.Date()
	hh, mm, ss := now.Clock()

	total := int(m) - 1 - months
	targetYear := y - years + floorDiv(total, 12)
	targetMonth := time.Month(total-floorDiv(total, 12)*12 + 1)
	if last := daysIn(targetYear, targetMonth); d > last {
		d = last
	}

	t := time.Date(targetYear, targetMonth, d, hh, mm, ss, now.Nanosecond(), now.Location())
	t = t.AddDate(0, 0, -days)
	return t.Add(-time.Duration(hours)*time.Hour - time.Duration(minutes)*time.Minute)
}

// relativeUnits are the words used by "2 Hari 3 Jam lalu" style widgets,
// in RelativeOffset argument order.
var relativeUnits = []string{"Tahun", "Bulan", "Hari", "Jam", "Menit"}

// ParseRelative reads a phrase like "1 Hari 4 Jam lalu" and returns the
// instant it refers to. Units missing from the phrase count as zero.
func ParseRelative(now time.Time, text string) (time.Time, error) {
	fields := strings.Fields(text)
	values := make([]int, len(relativeUnits))
	found := false

	for i, unit := range relativeUnits {
		for j := 1; j < len(fields); j++ {
			if !strings.EqualFold(fields[j], unit) {
				continue
			}
			n, err := strconv.Atoi(fields[j-1])
			if err != nil {
				continue
			}
			values[i] = n
			found = true
			break
		}
	}

	if !found {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNoOffset, text)
	}
	return RelativeOffset(now, values[0], values[1], values[2], values[3], values[4]), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
