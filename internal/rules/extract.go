package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	numericDate = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})`)
	isoDate     = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	namedDate   = regexp.MustCompile(`(?i)(\d{1,2})(?:er)?\s+(` + monthPattern() + `)\s+(\d{4})`)
)

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,

	"janvier": time.January, "février": time.February, "fevrier": time.February,
	"mars": time.March, "avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "août": time.August, "aout": time.August,
	"septembre": time.September, "octobre": time.October, "novembre": time.November,
	"décembre": time.December, "decembre": time.December,
}

func monthPattern() string {
	names := make([]string, 0, len(months))
	for name := range months {
		names = append(names, regexp.QuoteMeta(name))
	}
	return strings.Join(names, "|")
}

// ExtractDate returns the first recognizable date in text as YYYY-MM-DD.
// Numeric dates are read day first unless only the day position can be a month.
func ExtractDate(text string) *string {
	if m := numericDate.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if mo > 12 && d <= 12 {
			d, mo = mo, d
		}
		if s, ok := format(y, time.Month(mo), d); ok {
			return &s
		}
	}

	if m := isoDate.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if s, ok := format(y, time.Month(mo), d); ok {
			return &s
		}
	}

	if m := namedDate.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[3])
		if mo, ok := months[strings.ToLower(m[2])]; ok {
			if s, ok := format(y, mo, d); ok {
				return &s
			}
		}
	}

	return nil
}

func format(y int, mo time.Month, d int) (string, bool) {
	if mo < time.January || mo > time.December || d < 1 {
		return "", false
	}
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != mo {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

// Amount is a monetary value with its ISO currency code.
type Amount struct {
	Value    float64
	Currency string
}

type amountPattern struct {
	re       *regexp.Regexp
	currency int
	value    int
}

var amountPatterns = []amountPattern{
	{regexp.MustCompile(`(?i)(CHF|\bFr\.?)\s*([\d'\s]+[.,]\d{2})`), 1, 2},
	{regexp.MustCompile(`(?i)(EUR|€)\s*([\d\s]+[.,]\d{2})`), 1, 2},
	{regexp.MustCompile(`(?i)(USD|\$)\s*([\d,\s]+\.\d{2})`), 1, 2},
	{regexp.MustCompile(`(?i)(\d[\d'\s.,]*[.,]\d{2})\s*(CHF|EUR|€|USD|\$)`), 2, 1},
}

// ExtractAmount returns the first positive amount with a recognized currency.
func ExtractAmount(text string) (Amount, bool) {
	for _, p := range amountPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, ok := parseAmount(m[p.value])
		if !ok {
			continue
		}
		return Amount{Value: v, Currency: currencyCode(m[p.currency])}, true
	}
	return Amount{}, false
}

func currencyCode(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "€", "EUR":
		return "EUR"
	case "$", "USD":
		return "USD"
	default:
		return "CHF"
	}
}

// parseAmount reads a decimal with either separator. When both appear, the
// last one is the decimal separator.
func parseAmount(raw string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if r == '\'' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, raw)

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case dot >= 0 && comma >= 0 && dot > comma:
		s = strings.ReplaceAll(s, ",", "")
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
