package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

var errMissingColumn = errors.New("required column is missing")

// ParseCSV разбирает таблицу с заголовком. Порядок колонок произвольный,
// лишние колонки игнорируются.
func ParseCSV(r io.Reader) ([]domain.CallRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.ParseError{Err: errors.New("missing header row")}
		}
		return nil, &domain.ParseError{Err: err}
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []domain.CallRecord
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.ParseError{Row: row, Err: err}
		}

		rec, err := recordFromFields(row, func(col string) string { return fields[index[col]] })
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		// BOM от Excel попадает в первую колонку
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &domain.ParseError{Column: col, Err: errMissingColumn}
		}
	}
	return index, nil
}

// recordFromFields приводит строковые значения к CallRecord. get возвращает значение колонки.
func recordFromFields(row int, get func(col string) string) (domain.CallRecord, error) {
	fail := func(col string, err error) (domain.CallRecord, error) {
		return domain.CallRecord{}, &domain.ParseError{Row: row, Column: col, Value: get(col), Err: err}
	}

	var rec domain.CallRecord

	rec.ServiceName = strings.TrimSpace(get(ColServiceName))
	if isNullLiteral(rec.ServiceName) {
		return fail(ColServiceName, errEmpty)
	}

	if caller := strings.TrimSpace(get(ColCallerService)); !isNullLiteral(caller) {
		rec.CallerService = &caller
	}

	var err error
	if rec.CallCount, err = parseCount(get(ColCallCount)); err != nil {
		return fail(ColCallCount, err)
	}
	if rec.QPS, err = parseFloat(get(ColQPS)); err != nil {
		return fail(ColQPS, err)
	}
	if rec.ErrorRate, err = parseFloat(get(ColErrorRate)); err != nil {
		return fail(ColErrorRate, err)
	}
	if rec.ResponseTime, err = parseFloat(get(ColResponseTime)); err != nil {
		return fail(ColResponseTime, err)
	}
	if rec.Timestamp, err = parseTimestamp(get(ColTimestamp)); err != nil {
		return fail(ColTimestamp, err)
	}

	return rec, nil
}
