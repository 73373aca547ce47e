package domain

import "time"

// CallRecord - одно наблюдение из таблицы трассировок: вызов caller -> service.
// После ингеста запись не меняется.
type CallRecord struct {
	ServiceName   string    `json:"service_name"`             // Вызываемый сервис (callee)
	CallerService *string   `json:"caller_service,omitempty"` // nil - входящий вызов не зафиксирован
	CallCount     int64     `json:"call_count"`
	QPS           float64   `json:"qps"`
	ErrorRate     float64   `json:"error_rate"`    // Доля ошибок [0,1]
	ResponseTime  float64   `json:"response_time"` // Миллисекунды
	Timestamp     time.Time `json:"timestamp"`
}

// HasCaller сообщает, порождает ли запись ребро графа
func (r CallRecord) HasCaller() bool {
	return r.CallerService != nil
}

// Caller возвращает имя вызывающего сервиса или пустую строку
func (r CallRecord) Caller() string {
	if r.CallerService == nil {
		return ""
	}
	return *r.CallerService
}

// ServiceStats - агрегаты по всем записям, где сервис выступает вызываемым.
type ServiceStats struct {
	Service          string  `json:"service"`
	MeanErrorRate    float64 `json:"mean_error_rate"`
	MeanQPS          float64 `json:"mean_qps"`
	MeanResponseTime float64 `json:"mean_response_time"`
	Samples          int     `json:"samples"`
}

// TimePoint - точка временного ряда для панели конкретного сервиса
type TimePoint struct {
	Timestamp    time.Time `json:"timestamp"`
	QPS          float64   `json:"qps"`
	ErrorRate    float64   `json:"error_rate"`
	ResponseTime float64   `json:"response_time"`
	CallCount    int64     `json:"call_count"`
}

// Dataset описывает загруженный набор записей (одна загрузка = один датасет)
type Dataset struct {
	ID          string    `json:"id"` // UUID
	Name        string    `json:"name"`
	Format      string    `json:"format"` // "csv" или "json"
	RecordCount int       `json:"record_count"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
