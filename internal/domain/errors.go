package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDataset       = errors.New("dataset contains no records")
	ErrNoRecords          = errors.New("upload contains no records") // Всегда вместе с ErrEmptyDataset
	ErrUndefinedMean      = errors.New("mean of an empty group is undefined")
	ErrUnsupportedFormat  = errors.New("unsupported dataset format")
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrUnknownService     = errors.New("service not present in dataset")
	ErrInvalidThresholds  = errors.New("invalid filter thresholds")
	ErrInvalidQuery       = errors.New("invalid employee query")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ParseError описывает строку входной таблицы, которую не удалось привести к CallRecord.
// Row - номер строки данных (с 1), 0 - ошибка заголовка/структуры.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Row == 0 && e.Column != "":
		return fmt.Sprintf("parse: column %q: %v", e.Column, e.Err)
	case e.Row == 0:
		return fmt.Sprintf("parse: %v", e.Err)
	case e.Column == "":
		return fmt.Sprintf("parse: row %d: %v", e.Row, e.Err)
	default:
		return fmt.Sprintf("parse: row %d, column %q, value %q: %v", e.Row, e.Column, e.Value, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// UndefinedMeanError возникает, когда у сервиса нет ни одной записи, по которой можно посчитать среднее
type UndefinedMeanError struct {
	Service string
}

func (e *UndefinedMeanError) Error() string {
	return fmt.Sprintf("service %q: %v", e.Service, ErrUndefinedMean)
}

func (e *UndefinedMeanError) Unwrap() error { return ErrUndefinedMean }
