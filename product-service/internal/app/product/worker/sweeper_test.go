package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"threadberry/pkg/logger"
	"threadberry/product-service/internal/app/product/entity"
	"threadberry/product-service/internal/app/product/infrastructure"
	"threadberry/product-service/internal/app/product/repository/mocks"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.InitWithWriter("product-service-test", "error", io.Discard)
	os.Exit(m.Run())
}

func TestSweep_EmptyBacklogNoCalls(t *testing.T) {
	orphans := new(mocks.MockOrphanedMediaRepository)
	storage := new(mocks.MockMediaStorage)
	sweeper := NewOrphanSweeper(orphans, storage)

	ctx := context.Background()
	orphans.On("List", ctx, int64(sweepBatchSize)).Return([]entity.OrphanedMedia{}, nil)

	err := sweeper.Sweep(ctx)

	assert.NoError(t, err)
	storage.AssertNotCalled(t, "DeleteMany")
	orphans.AssertNotCalled(t, "Remove")
}

func TestSweep_RemovesOnlySucceeded(t *testing.T) {
	orphans := new(mocks.MockOrphanedMediaRepository)
	storage := new(mocks.MockMediaStorage)
	sweeper := NewOrphanSweeper(orphans, storage)

	ctx := context.Background()
	backlog := []entity.OrphanedMedia{
		{StorageID: "img-1", RecordedAt: time.Now().Add(-time.Hour)},
		{StorageID: "img-2", RecordedAt: time.Now()},
	}

	orphans.On("List", ctx, int64(sweepBatchSize)).Return(backlog, nil)
	storage.On("DeleteMany", ctx, []string{"img-1", "img-2"}).Return(&infrastructure.DeleteResult{
		Succeeded: []string{"img-1"},
		Failed:    []string{"img-2"},
	}, nil)
	orphans.On("Remove", ctx, []string{"img-1"}).Return(nil)

	err := sweeper.Sweep(ctx)

	assert.NoError(t, err)
	orphans.AssertCalled(t, "Remove", ctx, []string{"img-1"})
}

func TestSweep_StorageUnavailableKeepsBacklog(t *testing.T) {
	orphans := new(mocks.MockOrphanedMediaRepository)
	storage := new(mocks.MockMediaStorage)
	sweeper := NewOrphanSweeper(orphans, storage)

	ctx := context.Background()
	backlog := []entity.OrphanedMedia{{StorageID: "img-1"}}

	orphans.On("List", ctx, int64(sweepBatchSize)).Return(backlog, nil)
	storage.On("DeleteMany", ctx, []string{"img-1"}).Return(nil, errors.New("media service down"))

	err := sweeper.Sweep(ctx)

	assert.Error(t, err)
	orphans.AssertNotCalled(t, "Remove")
}

func TestSweep_NothingSucceededNoRemove(t *testing.T) {
	orphans := new(mocks.MockOrphanedMediaRepository)
	storage := new(mocks.MockMediaStorage)
	sweeper := NewOrphanSweeper(orphans, storage)

	ctx := context.Background()
	backlog := []entity.OrphanedMedia{{StorageID: "img-1"}}

	orphans.On("List", ctx, int64(sweepBatchSize)).Return(backlog, nil)
	storage.On("DeleteMany", ctx, []string{"img-1"}).
		Return(&infrastructure.DeleteResult{Failed: []string{"img-1"}}, nil)

	err := sweeper.Sweep(ctx)

	assert.NoError(t, err)
	orphans.AssertNotCalled(t, "Remove")
}
