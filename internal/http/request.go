package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneytracker/internal/ledger"
)

const maxBodyBytes = 1 << 20

// parseMonthParams reads year and month, defaulting to the month of now.
func parseMonthParams(q url.Values, now time.Time) (year, month int, err error) {
	year, month = now.Year(), int(now.Month())
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil || year < 1 || year > 9999 {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil || month < 1 || month > 12 {
			return 0, 0, fmt.Errorf("invalid month %q: must be 1-12", v)
		}
	}
	return year, month, nil
}

// parseDate accepts a calendar date in loc or an RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}

// parsePeriodParams resolves ?period=&date= into an inclusive range. The
// period defaults to monthly and the date to now.
func parsePeriodParams(q url.Values, stats *ledger.Stats, now time.Time) (start, end time.Time, err error) {
	period := ledger.PeriodMonthly
	if v := strings.TrimSpace(q.Get("period")); v != "" {
		period = ledger.Period(strings.ToLower(v))
	}
	if !period.IsValid() {
		return start, end, fmt.Errorf("invalid period %q: must be daily, weekly, monthly or quarterly", period)
	}
	at := now
	if v := q.Get("date"); v != "" {
		if at, err = parseDate(v, stats.Location()); err != nil {
			return start, end, err
		}
	}
	return stats.PeriodRange(period, at)
}

// parseDateRange reads ?from=&to= as inclusive calendar dates. Missing bounds
// default to the month of now.
func parseDateRange(q url.Values, stats *ledger.Stats, now time.Time) (start, end time.Time, err error) {
	start, end, err = stats.PeriodRange(ledger.PeriodMonthly, now)
	if err != nil {
		return start, end, err
	}
	loc := stats.Location()
	if v := q.Get("from"); v != "" {
		if start, err = parseDate(v, loc); err != nil {
			return start, end, err
		}
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v, loc)
		if err != nil {
			return start, end, err
		}
		end = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if end.Before(start) {
		return start, end, errors.New("invalid range: to is before from")
	}
	return start, end, nil
}

// decodeJSON decodes a bounded request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines, and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
