package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/foodlens/food-lens-server/imagegen"
	"github.com/foodlens/food-lens-server/models"
	"github.com/foodlens/food-lens-server/storage"
)

var testDBCounter int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:pipeline-test-%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Restaurant{},
		&models.MenuItem{},
		&models.GenerationJob{},
	))
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type stubGenerator struct {
	calls      int
	err        error
	onGenerate func()
}

func (s *stubGenerator) GenerateMenuItemImage(ctx context.Context, req imagegen.Request) (*imagegen.Image, error) {
	s.calls++
	if s.onGenerate != nil {
		s.onGenerate()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &imagegen.Image{Data: []byte("generated-bytes"), MIME: "image/png"}, nil
}

type stubUploader struct {
	err     error
	uploads []string
}

func (s *stubUploader) Upload(ctx context.Context, data []byte, key, contentType string) (*storage.UploadResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.uploads = append(s.uploads, key)
	return &storage.UploadResult{
		URL: "https://bucket.s3.us-east-1.amazonaws.com/" + key,
		Key: key,
	}, nil
}

func (s *stubUploader) UploadFromURL(ctx context.Context, srcURL, key string) (*storage.UploadResult, error) {
	return s.Upload(ctx, nil, key, "image/jpeg")
}

func (s *stubUploader) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (s *stubUploader) Delete(ctx context.Context, key string) error { return nil }

func seedItem(t *testing.T, db *gorm.DB) models.MenuItem {
	t.Helper()

	restaurant := models.Restaurant{Name: "Trattoria", Email: fmt.Sprintf("owner-%s@example.com", uuid.New())}
	require.NoError(t, db.Create(&restaurant).Error)

	item := models.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         "Margherita Pizza",
		Price:        12.5,
		Description:  "tomato, mozzarella, basil",
		Cuisine:      "Italian",
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func newTestService(db *gorm.DB, gen imagegen.Generator, up storage.Uploader) *Service {
	return New(db, gen, up, testLogger(), Options{
		PollInterval:  10 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
		GeneratingTTL: 5 * time.Minute,
	})
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) models.MenuItem {
	t.Helper()
	var item models.MenuItem
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	return item
}

func TestTriggerSetsGeneratingAndEnqueues(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})
	item := seedItem(t, db)

	assert.Equal(t, models.StatusPending, item.ImageGenerationStatus)

	triggered, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusGenerating, triggered.ImageGenerationStatus)
	assert.Equal(t, 1, triggered.GenerationAttempt)

	var jobs []models.GenerationJob
	require.NoError(t, db.Where("menu_item_id = ?", item.ID).Find(&jobs).Error)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobQueued, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Attempt)
}

func TestTriggerRejectsForeignTenant(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), uuid.New(), item.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWorkerCompletesItemEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	up := &stubUploader{}
	svc := newTestService(db, &stubGenerator{}, up)
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	processed, err := svc.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusCompleted, got.ImageGenerationStatus)

	wantPrefix := fmt.Sprintf("restaurants/%s/menu-items/%s/", item.RestaurantID, item.ID)
	assert.Contains(t, got.ImageKey, wantPrefix)
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/"+got.ImageKey, got.ImageURL)

	var job models.GenerationJob
	require.NoError(t, db.First(&job, "menu_item_id = ?", item.ID).Error)
	assert.Equal(t, models.JobSucceeded, job.Status)
}

func TestGeneratorFailureMarksItemFailed(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{err: errors.New("model exhausted retries")}, &stubUploader{})
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	_, err = svc.ProcessNext(context.Background())
	require.NoError(t, err)

	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusFailed, got.ImageGenerationStatus)
	assert.Empty(t, got.ImageURL)

	var job models.GenerationJob
	require.NoError(t, db.First(&job, "menu_item_id = ?", item.ID).Error)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Error, "model exhausted retries")
}

func TestUploadFailurePreservesLastGoodImage(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{err: errors.New("storage unavailable")})
	item := seedItem(t, db)

	// Simulate an earlier successful generation.
	require.NoError(t, db.Model(&models.MenuItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"image_url":               "https://bucket.s3.us-east-1.amazonaws.com/old-key.png",
		"image_key":               "old-key.png",
		"image_generation_status": models.StatusCompleted,
	}).Error)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	_, err = svc.ProcessNext(context.Background())
	require.NoError(t, err)

	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusFailed, got.ImageGenerationStatus)
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/old-key.png", got.ImageURL)
	assert.Equal(t, "old-key.png", got.ImageKey)
}

func TestRegenerationsNeverReuseKeys(t *testing.T) {
	db := setupTestDB(t)
	up := &stubUploader{}
	svc := newTestService(db, &stubGenerator{}, up)
	item := seedItem(t, db)

	for i := 0; i < 2; i++ {
		_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
		require.NoError(t, err)
		_, err = svc.ProcessNext(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, up.uploads, 2)
	assert.NotEqual(t, up.uploads[0], up.uploads[1])

	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusCompleted, got.ImageGenerationStatus)
	assert.Equal(t, up.uploads[1], got.ImageKey)
}

func TestSupersededJobIsSkipped(t *testing.T) {
	db := setupTestDB(t)
	gen := &stubGenerator{}
	svc := newTestService(db, gen, &stubUploader{})
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)
	_, err = svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	// First job carries attempt 1 while the item is already on attempt 2.
	processed, err := svc.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Zero(t, gen.calls, "superseded job must not reach the model")

	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusGenerating, got.ImageGenerationStatus)

	// Second job is current and completes the item.
	_, err = svc.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, models.StatusCompleted, reload(t, db, item.ID).ImageGenerationStatus)
}

func TestStaleResultDiscardedAtCommit(t *testing.T) {
	db := setupTestDB(t)
	item := seedItem(t, db)

	var svc *Service
	retriggered := false
	gen := &stubGenerator{}
	gen.onGenerate = func() {
		// A second trigger lands while the first run is mid-flight.
		if !retriggered {
			retriggered = true
			_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
			require.NoError(t, err)
		}
	}
	svc = newTestService(db, gen, &stubUploader{})

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	_, err = svc.ProcessNext(context.Background())
	require.NoError(t, err)

	// The first run finished but its attempt token was stale: the item
	// must show the second trigger's state, untouched by the first run.
	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusGenerating, got.ImageGenerationStatus)
	assert.Empty(t, got.ImageURL)

	var job models.GenerationJob
	require.NoError(t, db.Where("attempt = 1 AND menu_item_id = ?", item.ID).First(&job).Error)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Error, "superseded")
}

func TestQueuedJobClaimedExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	first, err := svc.claimJob(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.claimJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestJobForDeletedItemIsClosed(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.MenuItem{}, "id = ?", item.ID).Error)

	processed, err := svc.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	var job models.GenerationJob
	require.NoError(t, db.First(&job, "menu_item_id = ?", item.ID).Error)
	assert.Equal(t, models.JobFailed, job.Status)
}

func TestSweepFailsStuckItems(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})
	stuck := seedItem(t, db)
	fresh := seedItem(t, db)

	for _, item := range []models.MenuItem{stuck, fresh} {
		require.NoError(t, db.Model(&models.MenuItem{}).Where("id = ?", item.ID).
			Update("image_generation_status", models.StatusGenerating).Error)
	}

	// Backdate only the stuck item past the TTL.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.MenuItem{}).Where("id = ?", stuck.ID).
		UpdateColumn("updated_at", old).Error)

	svc.Sweep(context.Background())

	assert.Equal(t, models.StatusFailed, reload(t, db, stuck.ID).ImageGenerationStatus)
	assert.Equal(t, models.StatusGenerating, reload(t, db, fresh.ID).ImageGenerationStatus)
}

func TestSweepSupersedesQueuedJobs(t *testing.T) {
	db := setupTestDB(t)
	gen := &stubGenerator{}
	svc := newTestService(db, gen, &stubUploader{})
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.MenuItem{}).Where("id = ?", item.ID).
		UpdateColumn("updated_at", old).Error)

	svc.Sweep(context.Background())
	require.Equal(t, models.StatusFailed, reload(t, db, item.ID).ImageGenerationStatus)

	// The queued job left over from the dead trigger must not flip the
	// swept item back to completed.
	processed, err := svc.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Zero(t, gen.calls, "superseded job must not reach the model")

	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusFailed, got.ImageGenerationStatus)
	assert.Empty(t, got.ImageURL)

	var job models.GenerationJob
	require.NoError(t, db.First(&job, "menu_item_id = ?", item.ID).Error)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Error, "superseded")
}

func TestCommitErrorMarksItemFailed(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})
	item := seedItem(t, db)

	_, err := svc.Trigger(context.Background(), item.RestaurantID, item.ID)
	require.NoError(t, err)

	// Break only the success commit; the status-only failure update must
	// still go through.
	require.NoError(t, db.Migrator().DropColumn(&models.MenuItem{}, "image_url"))

	_, err = svc.ProcessNext(context.Background())
	require.NoError(t, err)

	got := reload(t, db, item.ID)
	assert.Equal(t, models.StatusFailed, got.ImageGenerationStatus)

	var job models.GenerationJob
	require.NoError(t, db.First(&job, "menu_item_id = ?", item.ID).Error)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestSweepClosesAbandonedJobs(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})
	item := seedItem(t, db)

	old := time.Now().Add(-time.Hour)
	job := models.GenerationJob{
		MenuItemID:   item.ID,
		RestaurantID: item.RestaurantID,
		Attempt:      1,
		Status:       models.JobRunning,
		LockedAt:     &old,
	}
	require.NoError(t, db.Create(&job).Error)

	svc.Sweep(context.Background())

	var got models.GenerationJob
	require.NoError(t, db.First(&got, "id = ?", job.ID).Error)
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Contains(t, got.Error, "abandoned")
}

func TestRunReturnsUploadResult(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, &stubGenerator{}, &stubUploader{})

	rid := uuid.New()
	mid := uuid.New()
	result, err := svc.Run(context.Background(), RunRequest{
		ItemName:     "Margherita Pizza",
		Description:  "tomato, mozzarella, basil",
		Cuisine:      "Italian",
		MenuItemID:   mid,
		RestaurantID: rid,
	})
	require.NoError(t, err)

	wantPrefix := fmt.Sprintf("restaurants/%s/menu-items/%s/", rid, mid)
	assert.Contains(t, result.Key, wantPrefix)
	assert.Contains(t, result.URL, result.Key)
}
