package service

import (
	"context"
	"fmt"

	"threadberry/pkg/logger"
	"threadberry/pkg/metrics"
	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/infrastructure"
	"threadberry/product-service/internal/app/product/repository"
)

// MediaReconciler поддерживает согласованность между списком изображений
// товара в MongoDB и объектами в media storage
//
// Правила порядка операций:
//   - create: загрузка ДО вставки документа - при неудаче документ не создаётся
//   - update: загрузка ДО сохранения; изображения, выброшенные retained-списком,
//     освобождаются только ПОСЛЕ успешного сохранения
//   - delete: объекты освобождаются ДО удаления документа; при частичной неудаче
//     документ всё равно удаляется (утечка в storage предпочтительнее живого
//     товара с битыми ссылками), неудачи фиксируются как orphaned media
type MediaReconciler struct {
	storage infrastructure.MediaStorage
	orphans repository.OrphanedMediaRepository
	folder  string
}

// NewMediaReconciler создает reconciler с внедрёнными зависимостями
func NewMediaReconciler(
	storage infrastructure.MediaStorage,
	orphans repository.OrphanedMediaRepository,
	folder string,
) *MediaReconciler {
	return &MediaReconciler{
		storage: storage,
		orphans: orphans,
		folder:  folder,
	}
}

// StageNewImages загружает партию файлов в media storage
// Партия атомарна с точки зрения вызывающей стороны: при любой неудаче
// уже загруженные объекты освобождаются и возвращается ErrMediaUpload -
// товар никогда не сохраняется со ссылками на часть партии
func (m *MediaReconciler) StageNewImages(ctx context.Context, files []entity.UploadFile) ([]entity.Image, error) {
	if len(files) == 0 {
		return nil, nil
	}

	uploaded, err := m.storage.UploadMany(ctx, files, m.folder)
	if err != nil {
		if len(uploaded) > 0 {
			m.ReleaseImages(ctx, storageIDs(uploaded))
		}
		return nil, fmt.Errorf("%w: %v", ErrMediaUpload, err)
	}

	return uploaded, nil
}

// MergeImageLists вычисляет итоговый список изображений при обновлении
//
// retained == nil означает "retained-список не передан": текущие изображения
// сохраняются без изменений, новые добавляются в конец. Непустой указатель
// (включая пустой срез) авторитетен: всё, что не перечислено, выбрасывается.
// Возвращает итоговый список и выброшенные изображения; освобождать их
// вызывающая сторона должна только после успешного сохранения документа
func (m *MediaReconciler) MergeImageLists(retained *[]entity.Image, current, uploaded []entity.Image) (final, dropped []entity.Image) {
	if retained == nil {
		final = append(final, current...)
		final = append(final, uploaded...)
		return final, nil
	}

	kept := make(map[string]bool, len(*retained))
	for _, img := range *retained {
		kept[img.StorageID] = true
	}

	final = append(final, *retained...)
	final = append(final, uploaded...)

	for _, img := range current {
		if !kept[img.StorageID] {
			dropped = append(dropped, img)
		}
	}

	return final, dropped
}

// ReleaseImages удаляет объекты из media storage (best-effort)
// Частичная неудача не блокирует операцию: неудавшиеся id записываются
// в orphaned_media для повторного удаления sweeper'ом и возвращаются
// вызывающей стороне как warning
func (m *MediaReconciler) ReleaseImages(ctx context.Context, ids []string) (failed []string) {
	if len(ids) == 0 {
		return nil
	}

	result, err := m.storage.DeleteMany(ctx, ids)
	if err != nil {
		// Весь вызов не удался - считаем все объекты не удалёнными
		failed = ids
	} else {
		failed = result.Failed
	}

	if len(failed) > 0 {
		metrics.MediaReleaseFailures.Add(float64(len(failed)))
		logger.Warn().
			Int("failed", len(failed)).
			Strs("storage_ids", failed).
			Msg("failed to release media objects, recording as orphaned")

		if err := m.orphans.Add(ctx, failed); err != nil {
			logger.Error().Err(err).Msg("failed to record orphaned media")
		}
	}

	return failed
}

func storageIDs(images []entity.Image) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.StorageID)
	}
	return ids
}
