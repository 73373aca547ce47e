package postgres

/*
Файл trace_repo.go хранит архив загруженных датасетов трассировок.
Консоль работает со снапшотом в памяти, а Postgres нужен, чтобы восстановить
последний датасет после рестарта и вернуться к любой прошлой загрузке.
*/

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/servicemap-console/internal/archive"
	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/infra"
)

type TraceRepo struct {
	pool *pgxpool.Pool
	rel  *infra.ReliabilityWrapper
}

func NewTraceRepo(pool *pgxpool.Pool, rel *infra.ReliabilityWrapper) *TraceRepo {
	return &TraceRepo{pool: pool, rel: rel}
}

// CreateDataset регистрирует загрузку до того, как записи уйдут в архиватор
func (r *TraceRepo) CreateDataset(ctx context.Context, ds domain.Dataset) error {
	query := `INSERT INTO datasets (id, name, format, record_count, uploaded_at) VALUES ($1, $2, $3, $4, $5)`

	return r.rel.Do(ctx, func(ctx context.Context) error {
		if _, err := r.pool.Exec(ctx, query, ds.ID, ds.Name, ds.Format, ds.RecordCount, ds.UploadedAt); err != nil {
			return fmt.Errorf("postgres: failed to create dataset: %w", err)
		}
		return nil
	})
}

// WriteBatch реализует archive.Storage через COPY
func (r *TraceRepo) WriteBatch(ctx context.Context, records []archive.Record) error {
	if len(records) == 0 {
		return nil
	}

	columns := []string{"dataset_id", "seq", "service_name", "caller_service", "call_count", "qps", "error_rate", "response_time", "ts"}
	rowAt := func(i int) ([]any, error) {
		rec := records[i]
		return []any{
			rec.DatasetID, rec.Seq, rec.ServiceName, rec.CallerService,
			rec.CallCount, rec.QPS, rec.ErrorRate, rec.ResponseTime, rec.Timestamp,
		}, nil
	}

	return r.rel.Do(ctx, func(ctx context.Context) error {
		// Источник одноразовый, на каждую попытку нужен новый
		src := pgx.CopyFromSlice(len(records), rowAt)
		if _, err := r.pool.CopyFrom(ctx, pgx.Identifier{"call_records"}, columns, src); err != nil {
			return fmt.Errorf("postgres: failed to copy call records: %w", err)
		}
		return nil
	})
}

const datasetColumns = `id, name, format, record_count, uploaded_at`

func scanDataset(row pgx.Row) (domain.Dataset, error) {
	var ds domain.Dataset
	err := row.Scan(&ds.ID, &ds.Name, &ds.Format, &ds.RecordCount, &ds.UploadedAt)
	return ds, err
}

func (r *TraceRepo) GetDataset(ctx context.Context, id string) (domain.Dataset, error) {
	ds, err := scanDataset(r.pool.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Dataset{}, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, id)
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("postgres: failed to get dataset: %w", err)
	}
	return ds, nil
}

// LatestDataset - последний загруженный датасет (для прогрева после рестарта)
func (r *TraceRepo) LatestDataset(ctx context.Context) (domain.Dataset, error) {
	ds, err := scanDataset(r.pool.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets ORDER BY uploaded_at DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Dataset{}, domain.ErrDatasetNotFound
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("postgres: failed to get latest dataset: %w", err)
	}
	return ds, nil
}

func (r *TraceRepo) ListDatasets(ctx context.Context, limit int) ([]domain.Dataset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+datasetColumns+` FROM datasets ORDER BY uploaded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list datasets: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Dataset, 0)
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, ds)
	}
	return results, rows.Err()
}

// LoadRecords читает записи датасета в исходном порядке
func (r *TraceRepo) LoadRecords(ctx context.Context, datasetID string) ([]domain.CallRecord, error) {
	query := `
		SELECT service_name, caller_service, call_count, qps, error_rate, response_time, ts
		FROM call_records
		WHERE dataset_id = $1
		ORDER BY seq`

	var results []domain.CallRecord
	err := r.rel.Do(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, datasetID)
		if err != nil {
			return fmt.Errorf("postgres: failed to load records: %w", err)
		}
		defer rows.Close()

		results = results[:0]
		for rows.Next() {
			var rec domain.CallRecord
			if err := rows.Scan(&rec.ServiceName, &rec.CallerService, &rec.CallCount,
				&rec.QPS, &rec.ErrorRate, &rec.ResponseTime, &rec.Timestamp); err != nil {
				return err
			}
			rec.Timestamp = rec.Timestamp.UTC()
			results = append(results, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
