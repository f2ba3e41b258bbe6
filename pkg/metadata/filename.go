package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reImgVidDateTime = regexp.MustCompile(`(?i)^(?:IMG|VID)_(\d{8})_(\d{6})`)
	rePxlDateTimeMs  = regexp.MustCompile(`(?i)^PXL_(\d{8})_(\d{6})\d{3,}`)
	reDashDots       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[ _](\d{2})\.(\d{2})\.(\d{2})`)
	reDashDashes     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})_(\d{2})-(\d{2})-(\d{2})`)
	reImgWhatsApp    = regexp.MustCompile(`(?i)^IMG-(\d{8})-WA\d+`)
	reScreenshot     = regexp.MustCompile(`(?i)^Screenshot_(\d{4})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})`)
	reCompactTime    = regexp.MustCompile(`^(\d{8})_(\d{6})(?:\d{3})?(?:[_. -]|$)`)
	reCompactDate    = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	reDashDate       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// ParseFilename extracts a date embedded in a file name.
//
// Patterns carrying a time of day are tried first. The leading token of the
// name (up to the first "_" or space) is then tried as YYYYMMDD or YYYY-MM-DD,
// in which case the candidate is marked DateOnly. Values that are not real
// calendar dates are rejected.
func ParseFilename(filename string) (Candidate, bool) {
	name := filepath.Base(filename)

	if t, raw, ok := parseDateTime(name); ok {
		return Candidate{Field: FieldFilename, Time: t, Raw: raw}, true
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	token := strings.SplitN(strings.ReplaceAll(stem, " ", "_"), "_", 2)[0]
	for _, re := range []*regexp.Regexp{reCompactDate, reDashDate} {
		m := re.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		if t, ok := dateOf(m[1], m[2], m[3], "00", "00", "00"); ok {
			return Candidate{Field: FieldFilename, Time: t, Raw: m[0], DateOnly: true}, true
		}
	}

	return Candidate{}, false
}

func parseDateTime(name string) (time.Time, string, bool) {
	for _, re := range []*regexp.Regexp{reImgVidDateTime, rePxlDateTimeMs, reCompactTime} {
		if m := re.FindStringSubmatch(name); m != nil {
			t, ok := parseYYYYMMDD_HHMMSS(m[1], m[2])
			return t, m[0], ok
		}
	}
	for _, re := range []*regexp.Regexp{reDashDots, reDashDashes, reScreenshot} {
		if m := re.FindStringSubmatch(name); m != nil {
			t, ok := dateOf(m[1], m[2], m[3], m[4], m[5], m[6])
			return t, m[0], ok
		}
	}
	if m := reImgWhatsApp.FindStringSubmatch(name); m != nil {
		if len(m[1]) != 8 {
			return time.Time{}, "", false
		}
		t, ok := dateOf(m[1][0:4], m[1][4:6], m[1][6:8], "00", "00", "00")
		return t, m[0], ok
	}
	return time.Time{}, "", false
}

func parseYYYYMMDD_HHMMSS(yyyymmdd, hhmmss string) (time.Time, bool) {
	if len(yyyymmdd) != 8 || len(hhmmss) != 6 {
		return time.Time{}, false
	}
	return dateOf(yyyymmdd[0:4], yyyymmdd[4:6], yyyymmdd[6:8], hhmmss[0:2], hhmmss[2:4], hhmmss[4:6])
}

// dateOf builds a time from its decimal parts, refusing values that
// time.Date would normalize (month 13, February 30, hour 24).
func dateOf(year, month, day, hour, minute, second string) (time.Time, bool) {
	var parts [6]int
	for i, s := range []string{year, month, day, hour, minute, second} {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false
		}
		parts[i] = n
	}
	t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC)
	if t.Year() != parts[0] || int(t.Month()) != parts[1] || t.Day() != parts[2] ||
		t.Hour() != parts[3] || t.Minute() != parts[4] || t.Second() != parts[5] {
		return time.Time{}, false
	}
	return t, true
}
