package worker

import (
	"context"

	"threadberry/pkg/logger"
	"threadberry/pkg/metrics"
	"threadberry/product-service/internal/app/product/infrastructure"
	"threadberry/product-service/internal/app/product/repository"

	"github.com/robfig/cron/v3"
)

// Максимум записей за один проход sweeper'а
const sweepBatchSize = 100

// OrphanSweeper периодически повторяет удаление объектов media storage,
// которые не удалось освободить при мутациях товаров
// Записи удаляются из orphaned_media только после успешного удаления объекта
type OrphanSweeper struct {
	cron    *cron.Cron
	orphans repository.OrphanedMediaRepository
	storage infrastructure.MediaStorage
}

// NewOrphanSweeper создает sweeper с внедрёнными зависимостями
func NewOrphanSweeper(
	orphans repository.OrphanedMediaRepository,
	storage infrastructure.MediaStorage,
) *OrphanSweeper {
	return &OrphanSweeper{
		cron:    cron.New(),
		orphans: orphans,
		storage: storage,
	}
}

// Start регистрирует задачу по расписанию и запускает планировщик
func (s *OrphanSweeper) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("starting orphaned media sweeper")

	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(ctx); err != nil {
			logger.Error().Err(err).Msg("orphaned media sweep failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop останавливает планировщик, дожидаясь завершения текущего прохода
func (s *OrphanSweeper) Stop() {
	logger.Info().Msg("stopping orphaned media sweeper")
	<-s.cron.Stop().Done()
}

// Sweep выполняет один проход: читает партию orphaned записей, повторяет
// удаление и убирает из коллекции только успешно удалённые
// Объекты, которых в storage уже нет, считаются успешно удалёнными
func (s *OrphanSweeper) Sweep(ctx context.Context) error {
	orphans, err := s.orphans.List(ctx, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orphans))
	for _, o := range orphans {
		ids = append(ids, o.StorageID)
	}

	result, err := s.storage.DeleteMany(ctx, ids)
	if err != nil {
		// Storage недоступен - записи остаются до следующего прохода
		return err
	}

	if len(result.Succeeded) == 0 {
		logger.Warn().Int("pending", len(ids)).Msg("orphaned media sweep removed nothing")
		return nil
	}

	if err := s.orphans.Remove(ctx, result.Succeeded); err != nil {
		return err
	}

	metrics.OrphanedMediaSwept.Add(float64(len(result.Succeeded)))
	logger.Info().
		Int("swept", len(result.Succeeded)).
		Int("remaining", len(result.Failed)).
		Msg("orphaned media sweep completed")

	return nil
}
