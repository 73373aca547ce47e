package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Обязательные колонки входной таблицы
const (
	ColServiceName   = "service_name"
	ColCallerService = "caller_service"
	ColCallCount     = "call_count"
	ColQPS           = "qps"
	ColErrorRate     = "error_rate"
	ColResponseTime  = "response_time"
	ColTimestamp     = "timestamp"
)

var requiredColumns = []string{
	ColServiceName, ColCallerService, ColCallCount, ColQPS, ColErrorRate, ColResponseTime, ColTimestamp,
}

// ParseFormat приводит явное имя формата ("csv", "JSON", ".json") к Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv", "text/csv":
		return FormatCSV, nil
	case "json", "application/json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
}

// DetectFormat выбирает формат по явному значению, затем по расширению файла, затем по Content-Type.
func DetectFormat(explicit, filename, contentType string) (Format, error) {
	if explicit != "" {
		return ParseFormat(explicit)
	}
	if ext := filepath.Ext(filename); ext != "" {
		if f, err := ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	if contentType != "" {
		// "text/csv; charset=utf-8" -> "text/csv"
		mt := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
		if f, err := ParseFormat(mt); err == nil {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: cannot detect format of %q", domain.ErrUnsupportedFormat, filename)
}

// Parse читает всю таблицу. Любая битая строка отменяет весь ингест.
func Parse(r io.Reader, f Format) ([]domain.CallRecord, error) {
	switch f {
	case FormatCSV:
		return ParseCSV(r)
	case FormatJSON:
		return ParseJSON(r)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, f)
}
