package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	errNotInteger = errors.New("not an integer")
	errNegative   = errors.New("must be non-negative")
	errNotNumber  = errors.New("not a number")
	errEmpty      = errors.New("value is required")
	errTimestamp  = errors.New("not a timestamp")
)

// isNullLiteral - так пустые значения выгружают pandas и SQL-клиенты
func isNullLiteral(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "nan", "nil":
		return true
	}
	return false
}

func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, errNegative
		}
		return n, nil
	}
	// "150.0" - типичный артефакт выгрузки из датафрейма
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotInteger
	}
	if f < 0 {
		return 0, errNegative
	}
	// float64(math.MaxInt64) == 2^63, уже не помещается в int64
	if f >= math.MaxInt64 {
		return 0, errNotInteger
	}
	return int64(f), nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumber
	}
	return f, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	// Unix-время в секундах
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errTimestamp, err)
	}
	return t.UTC(), nil
}
