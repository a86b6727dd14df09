package domain

import (
	"context"
	"errors"
	"time"
)

const (
	// SentinelThreshold is the POWER fill value. Samples at or below it are
	// missing observations.
	SentinelThreshold = -999.0

	// DefaultLookbackDays is the span of the default date range.
	DefaultLookbackDays = 90

	isoDateLayout   = "2006-01-02"
	powerDateLayout = "20060102"
)

// DateRange is an inclusive calendar date range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DefaultDateRange returns the range ending at now and starting 90 days earlier.
func DefaultDateRange(now time.Time) DateRange {
	return DateRange{
		Start: now.AddDate(0, 0, -DefaultLookbackDays),
		End:   now,
	}
}

// ParseDateRange parses ISO (YYYY-MM-DD) start and end dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(isoDateLayout, start)
	if err != nil {
		return DateRange{}, errors.New("start date must be formatted as YYYY-MM-DD")
	}
	e, err := time.Parse(isoDateLayout, end)
	if err != nil {
		return DateRange{}, errors.New("end date must be formatted as YYYY-MM-DD")
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate reports whether Start is on or before End.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("date range requires both start and end")
	}
	if r.Start.After(r.End) {
		return errors.New("start date must not be after end date")
	}
	return nil
}

// StartISO formats Start as YYYY-MM-DD.
func (r DateRange) StartISO() string { return r.Start.Format(isoDateLayout) }

// EndISO formats End as YYYY-MM-DD.
func (r DateRange) EndISO() string { return r.End.Format(isoDateLayout) }

// StartCompact formats Start as YYYYMMDD.
func (r DateRange) StartCompact() string { return r.Start.Format(powerDateLayout) }

// EndCompact formats End as YYYYMMDD.
func (r DateRange) EndCompact() string { return r.End.Format(powerDateLayout) }

// IrradianceSample is one raw daily value. Value may be a sentinel.
type IrradianceSample struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// IrradianceSeries is a date-ordered sequence of raw daily samples.
type IrradianceSeries []IrradianceSample

// ParseCompactDate parses a YYYYMMDD key as used by the irradiance service.
func ParseCompactDate(s string) (time.Time, error) {
	return time.Parse(powerDateLayout, s)
}

// IrradianceSource fetches raw daily irradiance for a coordinate.
type IrradianceSource interface {
	// Fetch returns the raw series for the inclusive range. Sentinel values
	// are passed through untouched.
	Fetch(ctx context.Context, coord Coordinate, dateRange DateRange) (IrradianceSeries, error)
}

// AggregateIrradiance returns the arithmetic mean of all samples strictly
// greater than SentinelThreshold. It returns ErrNoValidData when no sample
// qualifies. The mean is not rounded.
func AggregateIrradiance(series IrradianceSeries) (float64, error) {
	var sum float64
	var n int
	for _, s := range series {
		if s.Value > SentinelThreshold {
			sum += s.Value
			n++
		}
	}
	if n == 0 {
		return 0, ErrNoValidData
	}
	return sum / float64(n), nil
}
