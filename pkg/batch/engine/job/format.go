package job

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the yyyy.MM.dd HH:mm:ss.SSS layout of result timestamps and log lines.
const TimestampLayout = "2006.01.02 15:04:05.000"

// Formatter renders result row values.
type Formatter struct {
	Location         *time.Location
	DecimalSeparator string
}

// Timestamp formats t in the configured location.
func (f Formatter) Timestamp(t time.Time) string {
	if f.Location != nil {
		t = t.In(f.Location)
	}
	return t.Format(TimestampLayout)
}

// ExcelTimestamp wraps Timestamp as ="..." so spreadsheets keep it as text.
func (f Formatter) ExcelTimestamp(t time.Time) string {
	return `="` + f.Timestamp(t) + `"`
}

// Millis formats d as milliseconds with two decimals.
func (f Formatter) Millis(d time.Duration) string {
	return f.decimal(float64(d)/float64(time.Millisecond), 2)
}

// Rate formats a payments-per-second value with one decimal.
func (f Formatter) Rate(v float64) string {
	return f.decimal(v, 1)
}

func (f Formatter) decimal(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if f.DecimalSeparator != "" && f.DecimalSeparator != "." {
		s = strings.Replace(s, ".", f.DecimalSeparator, 1)
	}
	return s
}

// rate returns count per second over d, or 0 when nothing was measured.
func rate(count int, d time.Duration) float64 {
	if count == 0 || d <= 0 {
		return 0
	}
	return float64(count) / d.Seconds()
}
