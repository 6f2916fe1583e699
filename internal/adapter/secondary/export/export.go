// Package export renders timer snapshots for sharing. The core hands over
// the timer list; writing it somewhere is the caller's job.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"countdown/internal/codec"
	"countdown/internal/domain"
)

// ErrUnsupportedFormat indicates an unknown export format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
	FormatICS  Format = "ics"
)

// Formats lists the supported formats, default first.
var Formats = []Format{FormatJSON, FormatYAML, FormatCBOR, FormatICS}

// ParseFormat accepts a format name, case-insensitively. Empty means json.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatJSON, nil
	case "yml":
		return FormatYAML, nil
	case "ical", "icalendar":
		return FormatICS, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatCBOR:
		return "application/cbor"
	case FormatICS:
		return "text/calendar; charset=utf-8"
	default:
		return "application/json"
	}
}

// FileName is the suggested download name.
func (f Format) FileName() string {
	return "timers-export." + string(f)
}

var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("export: cbor encoder mode: %v", err))
	}
}

// Write encodes timers to w. json, yaml and cbor carry every timer; ics
// carries completed timers as calendar events.
func Write(w io.Writer, f Format, timers []domain.Timer) error {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(codec.Records(timers), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(codec.Records(timers)); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		return enc.Close()
	case FormatCBOR:
		data, err := cborMode.Marshal(codec.Records(timers))
		if err != nil {
			return fmt.Errorf("marshal cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatICS:
		if err := ical.NewEncoder(w).Encode(Calendar(timers, time.Now().UTC())); err != nil {
			return fmt.Errorf("encode ics: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Calendar builds a VCALENDAR with one VEVENT per completed timer, spanning
// the countdown that ended at its completion time.
func Calendar(timers []domain.Timer, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//countdown//timer history//EN")

	for _, t := range timers {
		if t.Status != domain.StatusCompleted || t.CompletionTime == nil {
			continue
		}
		end := t.CompletionTime.UTC()
		start := end.Add(-time.Duration(t.Duration) * time.Second)

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, t.ID+"@countdown")
		event.Props.SetText(ical.PropSummary, t.Name)
		event.Props.SetText(ical.PropCategories, t.Category)
		event.Props.SetText(ical.PropDescription, fmt.Sprintf("%s timer, %d seconds", t.Category, t.Duration))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, end)
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}
