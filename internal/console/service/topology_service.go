package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/ingest"
	"github.com/xela07ax/servicemap-console/internal/snapshot"
	"github.com/xela07ax/servicemap-console/internal/topology"
)

// DatasetArchive описывает требования к долговременному архиву загрузок
type DatasetArchive interface {
	CreateDataset(ctx context.Context, ds domain.Dataset) error
	GetDataset(ctx context.Context, id string) (domain.Dataset, error)
	LatestDataset(ctx context.Context) (domain.Dataset, error)
	ListDatasets(ctx context.Context, limit int) ([]domain.Dataset, error)
	LoadRecords(ctx context.Context, datasetID string) ([]domain.CallRecord, error)
}

// RecordArchiver - асинхронная запись записей датасета
type RecordArchiver interface {
	Enqueue(datasetID string, records []domain.CallRecord) int
}

// SnapshotStore - текущий датасет сессии
type SnapshotStore interface {
	Put(ctx context.Context, snap snapshot.Snapshot) error
	Current(ctx context.Context) (snapshot.Snapshot, error)
}

type TopologyService struct {
	store     SnapshotStore
	archive   DatasetArchive // nil - консоль без Postgres
	archiver  RecordArchiver
	metrics   *topology.Metrics
	defaults  domain.Thresholds
	logger    *zap.Logger
	now       func() time.Time
	listLimit int
}

func NewTopologyService(
	store SnapshotStore,
	archive DatasetArchive,
	archiver RecordArchiver,
	metrics *topology.Metrics,
	defaults domain.Thresholds,
	logger *zap.Logger,
) *TopologyService {
	if metrics == nil {
		metrics = topology.NewMetrics(nil)
	}
	return &TopologyService{
		store:     store,
		archive:   archive,
		archiver:  archiver,
		metrics:   metrics,
		defaults:  defaults,
		logger:    logger.Named("topology-service"),
		now:       time.Now,
		listLimit: 50,
	}
}

// DefaultThresholds - начальные значения слайдеров
func (s *TopologyService) DefaultThresholds() domain.Thresholds {
	return s.defaults
}

// Upload парсит таблицу и делает её текущим датасетом сессии.
// Датасет, по которому нельзя построить граф, отклоняется целиком, прежний остается.
func (s *TopologyService) Upload(ctx context.Context, name string, format ingest.Format, r io.Reader) (domain.Dataset, error) {
	// 1. Ingestion
	records, err := ingest.Parse(r, format)
	if err != nil {
		s.metrics.ErrorTotal.WithLabelValues(topology.ErrorType(err)).Inc()
		s.logger.Warn("dataset rejected", zap.String("name", name), zap.Error(err))
		return domain.Dataset{}, err
	}

	if len(records) == 0 {
		err := fmt.Errorf("%w: %w", domain.ErrNoRecords, domain.ErrEmptyDataset)
		s.metrics.ErrorTotal.WithLabelValues(topology.ErrorType(err)).Inc()
		s.logger.Warn("dataset rejected", zap.String("name", name), zap.Error(err))
		return domain.Dataset{}, err
	}

	// 2. Проверяем, что view-model строится (пустой датасет, caller без записей)
	if _, err := topology.Recompute(records, domain.DefaultThresholds()); err != nil {
		s.metrics.ErrorTotal.WithLabelValues(topology.ErrorType(err)).Inc()
		s.logger.Warn("dataset rejected", zap.String("name", name), zap.Error(err))
		return domain.Dataset{}, err
	}
	s.metrics.RecordsIngested.WithLabelValues(string(format)).Add(float64(len(records)))

	ds := domain.Dataset{
		ID:          uuid.New().String(),
		Name:        name,
		Format:      string(format),
		RecordCount: len(records),
		UploadedAt:  s.now().UTC(),
	}

	// 3. Архив (не блокирует пользователя при сбое Postgres)
	s.archiveDataset(ctx, ds, records)

	// 4. Снапшот сессии
	if err := s.store.Put(ctx, snapshot.Snapshot{Dataset: ds, Records: records}); err != nil {
		return domain.Dataset{}, fmt.Errorf("topology: failed to store snapshot: %w", err)
	}

	s.logger.Info("dataset uploaded",
		zap.String("dataset_id", ds.ID),
		zap.String("name", name),
		zap.Int("records", ds.RecordCount))
	return ds, nil
}

func (s *TopologyService) archiveDataset(ctx context.Context, ds domain.Dataset, records []domain.CallRecord) {
	if s.archive == nil || s.archiver == nil {
		return
	}
	if err := s.archive.CreateDataset(ctx, ds); err != nil {
		s.logger.Warn("dataset not archived", zap.String("dataset_id", ds.ID), zap.Error(err))
		return
	}
	if n := s.archiver.Enqueue(ds.ID, records); n < len(records) {
		s.logger.Warn("dataset archived partially",
			zap.String("dataset_id", ds.ID),
			zap.Int("accepted", n),
			zap.Int("records", len(records)))
	}
}

// View пересчитывает граф текущего датасета под пороги фильтра
func (s *TopologyService) View(ctx context.Context, t domain.Thresholds) (domain.TopologyView, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return domain.TopologyView{}, err
	}

	start := time.Now()
	view, err := topology.Recompute(snap.Records, t)
	s.metrics.ObserveRecompute(start, view, err)
	if err != nil {
		return domain.TopologyView{}, err
	}

	view.DatasetID = snap.Dataset.ID
	return view, nil
}

// TimeSeries - данные панели отдельного сервиса
func (s *TopologyService) TimeSeries(ctx context.Context, service string) ([]domain.TimePoint, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return topology.TimeSeries(snap.Records, service)
}

// Datasets возвращает историю загрузок; без архива - только текущий датасет
func (s *TopologyService) Datasets(ctx context.Context) ([]domain.Dataset, error) {
	if s.archive == nil {
		snap, err := s.store.Current(ctx)
		if errors.Is(err, domain.ErrEmptyDataset) {
			return []domain.Dataset{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []domain.Dataset{snap.Dataset}, nil
	}

	list, err := s.archive.ListDatasets(ctx, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("topology: could not list datasets: %w", err)
	}
	return list, nil
}

// Restore делает архивный датасет текущим
func (s *TopologyService) Restore(ctx context.Context, id string) (domain.Dataset, error) {
	if s.archive == nil {
		return domain.Dataset{}, fmt.Errorf("%w: archive is disabled", domain.ErrDatasetNotFound)
	}

	ds, err := s.archive.GetDataset(ctx, id)
	if err != nil {
		return domain.Dataset{}, err
	}
	snap, err := s.load(ctx, ds)
	if err != nil {
		return domain.Dataset{}, err
	}
	if err := s.store.Put(ctx, snap); err != nil {
		return domain.Dataset{}, fmt.Errorf("topology: failed to store snapshot: %w", err)
	}

	s.logger.Info("dataset restored", zap.String("dataset_id", ds.ID))
	return ds, nil
}

// LoadLatest поднимает последний архивный датасет; используется как snapshot.Loader
func (s *TopologyService) LoadLatest(ctx context.Context) (snapshot.Snapshot, error) {
	if s.archive == nil {
		return snapshot.Snapshot{}, domain.ErrDatasetNotFound
	}
	ds, err := s.archive.LatestDataset(ctx)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return s.load(ctx, ds)
}

func (s *TopologyService) load(ctx context.Context, ds domain.Dataset) (snapshot.Snapshot, error) {
	records, err := s.archive.LoadRecords(ctx, ds.ID)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("topology: could not load dataset %s: %w", ds.ID, err)
	}
	// Архиватор мог еще не дописать или сбросить часть записей
	if len(records) != ds.RecordCount {
		return snapshot.Snapshot{}, fmt.Errorf("%w: dataset %s is incomplete (%d of %d records)",
			domain.ErrDatasetNotFound, ds.ID, len(records), ds.RecordCount)
	}
	return snapshot.Snapshot{Dataset: ds, Records: records}, nil
}
