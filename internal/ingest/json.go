package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

var jsonAPI = jsoniter.Config{UseNumber: true}.Froze()

var (
	errNotObject   = errors.New("record is not an object")
	errBadDocument = errors.New("expected an array of records or an object with a \"records\" array")
	errBadType     = errors.New("unexpected value type")
)

// ParseJSON принимает массив объектов либо {"records": [...]}.
// Отсутствующий caller_service трактуется как null.
func ParseJSON(r io.Reader) ([]domain.CallRecord, error) {
	var doc interface{}
	if err := jsonAPI.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &domain.ParseError{Err: err}
	}

	var items []interface{}
	switch v := doc.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		arr, ok := v["records"].([]interface{})
		if !ok {
			return nil, &domain.ParseError{Err: errBadDocument}
		}
		items = arr
	case nil:
		return nil, nil
	default:
		return nil, &domain.ParseError{Err: errBadDocument}
	}

	records := make([]domain.CallRecord, 0, len(items))
	for i, item := range items {
		row := i + 1
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &domain.ParseError{Row: row, Err: errNotObject}
		}

		values, err := stringValues(row, obj)
		if err != nil {
			return nil, err
		}

		rec, err := recordFromFields(row, func(col string) string { return values[col] })
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// stringValues приводит значения объекта к строкам, чтобы переиспользовать общую коэрсию
func stringValues(row int, obj map[string]interface{}) (map[string]string, error) {
	values := make(map[string]string, len(requiredColumns))
	for _, col := range requiredColumns {
		raw, ok := obj[col]
		if !ok {
			if col == ColCallerService {
				continue
			}
			return nil, &domain.ParseError{Row: row, Column: col, Err: errMissingColumn}
		}

		switch v := raw.(type) {
		case nil:
			values[col] = ""
		case string:
			values[col] = v
		case json.Number:
			values[col] = v.String()
		case jsoniter.Number:
			values[col] = v.String()
		case float64:
			values[col] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, &domain.ParseError{Row: row, Column: col, Value: fmt.Sprint(v), Err: errBadType}
		}
	}
	return values, nil
}
