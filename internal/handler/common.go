package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Health responds to GET /healthz.  Load balancers and monitoring use it
// to verify the service is up.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// getUserID extracts the user_id set by the JWT middleware and converts
// it to uint64.  JWT numeric claims round-trip as float64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseDate parses a YYYY-MM-DD query or body value as a UTC date.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// parseClock converts a HH:MM string into an offset on the given date.
// "24:00" is accepted as the exclusive end of day.
func parseClock(date time.Time, s string) (time.Time, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if s == "24:00" {
		return day.Add(24 * time.Hour), nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}
