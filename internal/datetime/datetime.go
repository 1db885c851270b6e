// Package datetime pairs an instant with the textual notation it was written
// in, so that a date read from a post is written back in the same style.
package datetime

import (
	"errors"
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"
)

// Format names a date notation. RFC3339 and RFC2822 are fixed markers; any
// other value is a strftime pattern.
type Format string

const (
	RFC3339 Format = "RFC3339"
	RFC2822 Format = "RFC2822"
)

// Default is the notation used for dates created by the engine.
const Default = RFC3339

// rfc3339Layout prints UTC as +00:00 instead of Z.
const rfc3339Layout = "2006-01-02T15:04:05-07:00"

// rfc2822Layout writes the day without padding.
const rfc2822Layout = "Mon, 2 Jan 2006 15:04:05 -0700"

var rfc2822Layouts = []string{
	rfc2822Layout,
	time.RFC1123Z,
	"2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
}

// Fallbacks are tried, in order, after RFC3339 and RFC2822.
var Fallbacks = []Format{
	"%Y/%m/%d %H:%M:%S",
	"%Y-%m-%d %H:%M:%S",
	"%Y/%m/%d",
	"%Y-%m-%d",
}

// ErrUnrecognized is returned when no known notation accepts a date string.
var ErrUnrecognized = errors.New("unrecognized date")

// Format renders t in UTC using the notation.
func (f Format) Format(t time.Time) string {
	t = t.UTC()
	switch f {
	case RFC3339:
		return t.Format(rfc3339Layout)
	case RFC2822:
		return t.Format(rfc2822Layout)
	}
	return strftime.Format(string(f), t)
}

// Parse reads s strictly in this notation.
func (f Format) Parse(s string) (time.Time, error) {
	switch f {
	case RFC3339:
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	case RFC2822:
		var firstErr error
		for _, layout := range rfc2822Layouts {
			t, err := time.Parse(layout, s)
			if err == nil {
				return t.UTC(), nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return time.Time{}, firstErr
	}
	t, err := strftime.Parse(string(f), s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DateTime is a UTC instant together with its notation.
type DateTime struct {
	t      time.Time
	format Format
}

// New pairs t with a notation. An empty notation means Default.
func New(t time.Time, f Format) DateTime {
	if f == "" {
		f = Default
	}
	return DateTime{t: t.UTC(), format: f}
}

// Now returns the current second in the given notation.
func Now(f Format) DateTime {
	return New(time.Now().Truncate(time.Second), f)
}

// Parse detects the notation of s. A non-empty custom pattern is tried first,
// then RFC3339, RFC2822 and the Fallbacks.
func Parse(s string, custom Format) (DateTime, error) {
	candidates := make([]Format, 0, len(Fallbacks)+3)
	if custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates, RFC3339, RFC2822)
	candidates = append(candidates, Fallbacks...)

	for _, f := range candidates {
		if t, err := f.Parse(s); err == nil {
			return DateTime{t: t, format: f}, nil
		}
	}
	return DateTime{}, fmt.Errorf("datetime: %w: %q", ErrUnrecognized, s)
}

func (d DateTime) Time() time.Time { return d.t }

func (d DateTime) Format() Format { return d.format }

func (d DateTime) IsZero() bool { return d.t.IsZero() && d.format == "" }

// String renders the instant in its own notation.
func (d DateTime) String() string {
	return d.format.Format(d.t)
}

// Equal reports whether both the instant and the notation match.
func (d DateTime) Equal(o DateTime) bool {
	return d.t.Equal(o.t) && d.format == o.format
}
