package service

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

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

func TestStageNewImages_EmptyBatch(t *testing.T) {
	storage := new(mocks.MockMediaStorage)
	orphans := new(mocks.MockOrphanedMediaRepository)
	reconciler := NewMediaReconciler(storage, orphans, "products")

	images, err := reconciler.StageNewImages(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, images)
	storage.AssertNotCalled(t, "UploadMany")
}

func TestStageNewImages_Success(t *testing.T) {
	storage := new(mocks.MockMediaStorage)
	orphans := new(mocks.MockOrphanedMediaRepository)
	reconciler := NewMediaReconciler(storage, orphans, "products")

	ctx := context.Background()
	files := []entity.UploadFile{{Name: "a.jpg"}, {Name: "b.jpg"}}
	uploaded := []entity.Image{
		{StorageID: "img-1", URL: "https://cdn/img-1"},
		{StorageID: "img-2", URL: "https://cdn/img-2"},
	}

	storage.On("UploadMany", ctx, files, "products").Return(uploaded, nil)

	images, err := reconciler.StageNewImages(ctx, files)

	assert.NoError(t, err)
	assert.Equal(t, uploaded, images)
}

func TestStageNewImages_PartialFailureRollsBack(t *testing.T) {
	storage := new(mocks.MockMediaStorage)
	orphans := new(mocks.MockOrphanedMediaRepository)
	reconciler := NewMediaReconciler(storage, orphans, "products")

	ctx := context.Background()
	files := []entity.UploadFile{{Name: "a.jpg"}, {Name: "b.jpg"}}
	partial := []entity.Image{{StorageID: "img-1", URL: "https://cdn/img-1"}}

	storage.On("UploadMany", ctx, files, "products").Return(partial, errors.New("storage unavailable"))
	storage.On("DeleteMany", ctx, []string{"img-1"}).
		Return(&infrastructure.DeleteResult{Succeeded: []string{"img-1"}}, nil)

	images, err := reconciler.StageNewImages(ctx, files)

	assert.ErrorIs(t, err, ErrMediaUpload)
	assert.Nil(t, images)
	storage.AssertCalled(t, "DeleteMany", ctx, []string{"img-1"})
}

func TestMergeImageLists_NilRetainedKeepsCurrent(t *testing.T) {
	reconciler := NewMediaReconciler(nil, nil, "products")

	current := []entity.Image{{StorageID: "old-1"}, {StorageID: "old-2"}}
	uploaded := []entity.Image{{StorageID: "new-1"}}

	final, dropped := reconciler.MergeImageLists(nil, current, uploaded)

	assert.Len(t, final, 3)
	assert.Equal(t, "old-1", final[0].StorageID)
	assert.Equal(t, "new-1", final[2].StorageID)
	assert.Nil(t, dropped)
}

func TestMergeImageLists_EmptyRetainedDropsAll(t *testing.T) {
	reconciler := NewMediaReconciler(nil, nil, "products")

	current := []entity.Image{{StorageID: "old-1"}, {StorageID: "old-2"}, {StorageID: "old-3"}}
	retained := []entity.Image{}

	final, dropped := reconciler.MergeImageLists(&retained, current, nil)

	assert.Empty(t, final)
	assert.Len(t, dropped, 3)
}

func TestMergeImageLists_SubsetRetained(t *testing.T) {
	reconciler := NewMediaReconciler(nil, nil, "products")

	current := []entity.Image{{StorageID: "old-1"}, {StorageID: "old-2"}}
	retained := []entity.Image{{StorageID: "old-2"}}
	uploaded := []entity.Image{{StorageID: "new-1"}}

	final, dropped := reconciler.MergeImageLists(&retained, current, uploaded)

	assert.Len(t, final, 2)
	assert.Equal(t, "old-2", final[0].StorageID)
	assert.Equal(t, "new-1", final[1].StorageID)
	assert.Len(t, dropped, 1)
	assert.Equal(t, "old-1", dropped[0].StorageID)
}

func TestReleaseImages_PartialFailureRecordedAsOrphaned(t *testing.T) {
	storage := new(mocks.MockMediaStorage)
	orphans := new(mocks.MockOrphanedMediaRepository)
	reconciler := NewMediaReconciler(storage, orphans, "products")

	ctx := context.Background()
	ids := []string{"img-1", "img-2"}

	storage.On("DeleteMany", ctx, ids).Return(&infrastructure.DeleteResult{
		Succeeded: []string{"img-1"},
		Failed:    []string{"img-2"},
	}, nil)
	orphans.On("Add", ctx, []string{"img-2"}).Return(nil)

	failed := reconciler.ReleaseImages(ctx, ids)

	assert.Equal(t, []string{"img-2"}, failed)
	orphans.AssertCalled(t, "Add", ctx, []string{"img-2"})
}

func TestReleaseImages_CallErrorMarksAllFailed(t *testing.T) {
	storage := new(mocks.MockMediaStorage)
	orphans := new(mocks.MockOrphanedMediaRepository)
	reconciler := NewMediaReconciler(storage, orphans, "products")

	ctx := context.Background()
	ids := []string{"img-1", "img-2"}

	storage.On("DeleteMany", ctx, ids).Return(nil, errors.New("media service down"))
	orphans.On("Add", ctx, ids).Return(nil)

	failed := reconciler.ReleaseImages(ctx, ids)

	assert.Equal(t, ids, failed)
}

func TestReleaseImages_OrphanRecordErrorNotFatal(t *testing.T) {
	storage := new(mocks.MockMediaStorage)
	orphans := new(mocks.MockOrphanedMediaRepository)
	reconciler := NewMediaReconciler(storage, orphans, "products")

	ctx := context.Background()

	storage.On("DeleteMany", ctx, []string{"img-1"}).
		Return(&infrastructure.DeleteResult{Failed: []string{"img-1"}}, nil)
	orphans.On("Add", ctx, []string{"img-1"}).Return(errors.New("db error"))

	failed := reconciler.ReleaseImages(ctx, []string{"img-1"})

	assert.Equal(t, []string{"img-1"}, failed)
}

func TestReleaseImages_EmptyListNoCalls(t *testing.T) {
	storage := new(mocks.MockMediaStorage)
	orphans := new(mocks.MockOrphanedMediaRepository)
	reconciler := NewMediaReconciler(storage, orphans, "products")

	failed := reconciler.ReleaseImages(context.Background(), nil)

	assert.Nil(t, failed)
	storage.AssertNotCalled(t, "DeleteMany")
}
