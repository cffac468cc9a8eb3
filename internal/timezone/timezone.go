// Package timezone converts between the configured local zone and UTC.
//
// Everything persisted is UTC; everything shown to people or typed by them is local.
// An unknown zone name never fails: it degrades to a fixed UTC+3 offset.
package timezone

import (
	"log/slog"
	"time"
)

// DefaultLayout is the human-facing date/time format.
const DefaultLayout = "02.01.2006 15:04"

// FallbackOffset is used when the configured zone cannot be loaded.
const FallbackOffset = 3 * 60 * 60

// Converter converts instants between UTC and one configured zone.
type Converter struct {
	loc *time.Location
	now func() time.Time
}

// Load returns a Converter for the IANA zone name. An empty or unknown name
// falls back to a fixed UTC+3 zone.
func Load(name string, logger *slog.Logger) *Converter {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" {
		if logger != nil {
			logger.Warn("unknown timezone, falling back to UTC+3", "timezone", name, "err", err)
		}
		loc = time.FixedZone("UTC+3", FallbackOffset)
	}
	return &Converter{loc: loc, now: time.Now}
}

// New returns a Converter for loc with the given time source. A nil now uses time.Now.
func New(loc *time.Location, now func() time.Time) *Converter {
	if loc == nil {
		loc = time.FixedZone("UTC+3", FallbackOffset)
	}
	if now == nil {
		now = time.Now
	}
	return &Converter{loc: loc, now: now}
}

// Location returns the configured zone.
func (c *Converter) Location() *time.Location { return c.loc }

// ToUTC reads the wall clock of local as a time in the configured zone and
// returns the corresponding UTC instant. The location carried by local is ignored.
func (c *Converter) ToUTC(local time.Time) time.Time {
	wall := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), c.loc)
	return wall.UTC()
}

// ToLocal returns the same instant in the configured zone.
func (c *Converter) ToLocal(t time.Time) time.Time {
	return t.In(c.loc)
}

// ShiftWall moves local by the given number of minutes on the wall clock of the
// configured zone. Across a DST change the result keeps its wall-clock distance
// rather than its elapsed distance.
func (c *Converter) ShiftWall(local time.Time, minutes int) time.Time {
	l := local.In(c.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute()+minutes, l.Second(), l.Nanosecond(), c.loc)
}

// NowUTC returns the current instant in UTC.
func (c *Converter) NowUTC() time.Time { return c.now().UTC() }

// NowLocal returns the current instant in the configured zone.
func (c *Converter) NowLocal() time.Time { return c.now().In(c.loc) }

// Format renders a UTC instant as local time using DefaultLayout. The zero time renders empty.
func (c *Converter) Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return c.ToLocal(t).Format(DefaultLayout)
}

// ParseLocal parses s as local wall-clock time and returns the UTC instant.
// An empty layout means DefaultLayout.
func (c *Converter) ParseLocal(s, layout string) (time.Time, error) {
	if layout == "" {
		layout = DefaultLayout
	}
	t, err := time.ParseInLocation(layout, s, c.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
