package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

const sampleCSV = `service_name,caller_service,call_count,qps,error_rate,response_time,timestamp
A,,10,50,0.02,120,2024-03-01T10:00:00Z
B,A,150,20,0.12,340.5,2024-03-01T10:00:00Z
`

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 2)

	a := records[0]
	assert.Equal(t, "A", a.ServiceName)
	assert.Nil(t, a.CallerService)
	assert.Equal(t, int64(10), a.CallCount)
	assert.Equal(t, 50.0, a.QPS)
	assert.Equal(t, 0.02, a.ErrorRate)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), a.Timestamp)

	b := records[1]
	require.NotNil(t, b.CallerService)
	assert.Equal(t, "A", *b.CallerService)
	assert.Equal(t, int64(150), b.CallCount)
	assert.Equal(t, 340.5, b.ResponseTime)
}

func TestParseCSVColumnOrderAndNullLiterals(t *testing.T) {
	in := "timestamp,QPS,service_name,error_rate,response_time,call_count,caller_service,extra\n" +
		"1709287200,5,svc,0,1,150.0,None,x\n" +
		"2024-03-01 10:05:00,6,svc,0,1,3,NaN,y\n"

	records, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Nil(t, records[0].CallerService)
	assert.Nil(t, records[1].CallerService)
	assert.Equal(t, int64(150), records[0].CallCount)
	assert.Equal(t, time.Unix(1709287200, 0).UTC(), records[0].Timestamp)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC), records[1].Timestamp)
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		row    int
		column string
	}{
		{
			name:   "missing column",
			input:  "service_name,caller_service,call_count,qps,error_rate,timestamp\nA,,1,1,0,2024-03-01T10:00:00Z\n",
			row:    0,
			column: ColResponseTime,
		},
		{
			name:   "fractional call count",
			input:  "service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\nA,,1.5,1,0,1,2024-03-01T10:00:00Z\n",
			row:    1,
			column: ColCallCount,
		},
		{
			name:   "negative call count",
			input:  "service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\nA,,-1,1,0,1,2024-03-01T10:00:00Z\n",
			row:    1,
			column: ColCallCount,
		},
		{
			name:   "call count overflows int64",
			input:  "service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\nA,,1,1,0,1,2024-03-01T10:00:00Z\nB,A,1e19,1,0,1,2024-03-01T10:00:00Z\n",
			row:    2,
			column: ColCallCount,
		},
		{
			name:   "call count beyond int64 digits",
			input:  "service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\nA,,99999999999999999999,1,0,1,2024-03-01T10:00:00Z\n",
			row:    1,
			column: ColCallCount,
		},
		{
			name: "bad qps on second row",
			input: "service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\n" +
				"A,,1,1,0,1,2024-03-01T10:00:00Z\n" +
				"B,A,1,fast,0,1,2024-03-01T10:00:00Z\n",
			row:    2,
			column: ColQPS,
		},
		{
			name:   "empty service name",
			input:  "service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\n,,1,1,0,1,2024-03-01T10:00:00Z\n",
			row:    1,
			column: ColServiceName,
		},
		{
			name:   "bad timestamp",
			input:  "service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\nA,,1,1,0,1,yesterday-ish\n",
			row:    1,
			column: ColTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseCSV(strings.NewReader(tt.input))
			assert.Nil(t, records)

			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
			assert.Equal(t, tt.row, pe.Row)
			assert.Equal(t, tt.column, pe.Column)
		})
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	records, err := ParseCSV(strings.NewReader("service_name,caller_service,call_count,qps,error_rate,response_time,timestamp\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	var pe *domain.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestParseJSON(t *testing.T) {
	in := `[
		{"service_name":"A","caller_service":null,"call_count":10,"qps":50,"error_rate":0.02,"response_time":120,"timestamp":"2024-03-01T10:00:00Z"},
		{"service_name":"B","caller_service":"A","call_count":"150","qps":"20","error_rate":0.12,"response_time":340.5,"timestamp":1709287200},
		{"service_name":"C","call_count":1,"qps":1,"error_rate":0,"response_time":1,"timestamp":"2024-03-01 10:00:00"}
	]`

	records, err := ParseJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Nil(t, records[0].CallerService)
	require.NotNil(t, records[1].CallerService)
	assert.Equal(t, "A", *records[1].CallerService)
	assert.Equal(t, int64(150), records[1].CallCount)
	assert.Equal(t, 20.0, records[1].QPS)
	assert.Equal(t, time.Unix(1709287200, 0).UTC(), records[1].Timestamp)
	assert.Nil(t, records[2].CallerService)
}

func TestParseJSONWrapped(t *testing.T) {
	in := `{"records":[{"service_name":"A","caller_service":"","call_count":1,"qps":1,"error_rate":0,"response_time":1,"timestamp":"2024-03-01T10:00:00Z"}]}`

	records, err := ParseJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].CallerService)
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		row    int
		column string
	}{
		{"not json", `{{`, 0, ""},
		{"scalar document", `42`, 0, ""},
		{"non object row", `[1]`, 1, ""},
		{"missing qps", `[{"service_name":"A","call_count":1,"error_rate":0,"response_time":1,"timestamp":"2024-03-01T10:00:00Z"}]`, 1, ColQPS},
		{"bool value", `[{"service_name":"A","call_count":true,"qps":1,"error_rate":0,"response_time":1,"timestamp":"2024-03-01T10:00:00Z"}]`, 1, ColCallCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON(strings.NewReader(tt.input))
			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
			assert.Equal(t, tt.row, pe.Row)
			assert.Equal(t, tt.column, pe.Column)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("", "calls.CSV", "")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("", "upload", "application/json; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = DetectFormat("json", "calls.csv", "")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = DetectFormat("", "calls.xlsx", "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := Parse(strings.NewReader(""), Format("parquet"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
