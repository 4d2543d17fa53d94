package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/models"
)

// Start launches the worker pool and the reconciliation sweeper. Both
// stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		go s.workLoop(ctx)
	}
	go s.sweepLoop(ctx)

	s.log.WithField("workers", s.workers).Info("generation workers started")
}

func (s *Service) workLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Drain the queue before sleeping again.
		for {
			processed, err := s.ProcessNext(ctx)
			if err != nil {
				s.log.WithError(err).Error("generation worker pass failed")
				break
			}
			if !processed {
				break
			}
		}
	}
}

// ProcessNext claims and runs at most one queued job. Returns false when
// the queue is empty or another worker claimed the head first.
func (s *Service) ProcessNext(ctx context.Context) (bool, error) {
	job, err := s.claimJob(ctx)
	if err != nil || job == nil {
		return false, err
	}
	s.runJob(ctx, job)
	return true, nil
}

// claimJob takes the oldest queued job by compare-and-set on its status,
// so two workers never run the same job.
func (s *Service) claimJob(ctx context.Context) (*models.GenerationJob, error) {
	var job models.GenerationJob
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.JobQueued).
		Order("created_at asc").
		Order("attempt asc").
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobQueued).
		Updates(map[string]interface{}{
			"status":    models.JobRunning,
			"locked_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	job.Status = models.JobRunning
	job.LockedAt = &now
	return &job, nil
}

func (s *Service) runJob(ctx context.Context, job *models.GenerationJob) {
	log := s.log.WithFields(logrus.Fields{
		"job_id":       job.ID,
		"menu_item_id": job.MenuItemID,
		"attempt":      job.Attempt,
	})

	// An in-process error must never leave the item stuck in generating.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("generation job panicked: %v", r)
			s.commitFailure(job)
			s.finishJob(job, models.JobFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	var item models.MenuItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", job.MenuItemID).Error; err != nil {
		log.WithError(err).Warn("menu item gone before generation started")
		s.finishJob(job, models.JobFailed, "menu item no longer exists")
		return
	}

	if item.GenerationAttempt != job.Attempt {
		log.Info("job superseded before it started")
		s.finishJob(job, models.JobFailed, "superseded by a newer attempt")
		return
	}

	result, err := s.Run(ctx, RunRequest{
		ItemName:     item.Name,
		Description:  item.Description,
		Cuisine:      item.Cuisine,
		MenuItemID:   item.ID,
		RestaurantID: item.RestaurantID,
	})
	if err != nil {
		log.WithError(err).Error("generation failed")
		s.commitFailure(job)
		s.finishJob(job, models.JobFailed, err.Error())
		return
	}

	committed, err := s.commitSuccess(job, result.URL, result.Key)
	if err != nil {
		log.WithError(err).Error("failed to commit generation result")
		// Leave the item failed rather than stuck in generating until
		// the sweeper's TTL expires.
		s.commitFailure(job)
		s.finishJob(job, models.JobFailed, err.Error())
		return
	}
	if !committed {
		log.Info("stale generation result discarded")
		s.finishJob(job, models.JobFailed, "superseded by a newer attempt")
		return
	}

	log.WithField("image_url", result.URL).Info("generation completed")
	s.finishJob(job, models.JobSucceeded, "")
}

// commitSuccess writes image_url, image_key and completed status in a
// single update, guarded by the attempt counter the job started with.
func (s *Service) commitSuccess(job *models.GenerationJob, url, key string) (bool, error) {
	res := s.db.Model(&models.MenuItem{}).
		Where("id = ? AND generation_attempt = ?", job.MenuItemID, job.Attempt).
		Updates(map[string]interface{}{
			"image_url":               url,
			"image_key":               key,
			"image_generation_status": models.StatusCompleted,
		})
	return res.RowsAffected > 0, res.Error
}

// commitFailure marks the item failed. The previous image_url/image_key
// are preserved so a once-good image keeps rendering.
func (s *Service) commitFailure(job *models.GenerationJob) {
	err := s.db.Model(&models.MenuItem{}).
		Where("id = ? AND generation_attempt = ?", job.MenuItemID, job.Attempt).
		Update("image_generation_status", models.StatusFailed).Error
	if err != nil {
		s.log.WithError(err).WithField("menu_item_id", job.MenuItemID).
			Error("failed to mark item failed")
	}
}

func (s *Service) finishJob(job *models.GenerationJob, status, errMsg string) {
	err := s.db.Model(&models.GenerationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status": status,
			"error":  errMsg,
		}).Error
	if err != nil {
		s.log.WithError(err).WithField("job_id", job.ID).Error("failed to finish job")
	}
}

func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep reconciles work abandoned by a dead process: items stuck in
// generating past the TTL become failed and retriggerable, and running
// jobs with a stale lock are closed out. Sweeping bumps the attempt
// counter so any outstanding job for the item is superseded; without
// that, a leftover queued job could flip the swept item back to
// completed with no new trigger.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.generatingTTL)

	res := s.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("image_generation_status = ? AND updated_at < ?", models.StatusGenerating, cutoff).
		Updates(map[string]interface{}{
			"image_generation_status": models.StatusFailed,
			"generation_attempt":      gorm.Expr("generation_attempt + 1"),
		})
	if res.Error != nil {
		s.log.WithError(res.Error).Error("sweep of stuck items failed")
	} else if res.RowsAffected > 0 {
		s.log.WithField("count", res.RowsAffected).Warn("marked stuck generating items as failed")
	}

	res = s.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("status = ? AND locked_at < ?", models.JobRunning, cutoff).
		Updates(map[string]interface{}{
			"status": models.JobFailed,
			"error":  "abandoned by a dead worker",
		})
	if res.Error != nil {
		s.log.WithError(res.Error).Error("sweep of abandoned jobs failed")
	} else if res.RowsAffected > 0 {
		s.log.WithField("count", res.RowsAffected).Warn("closed abandoned generation jobs")
	}
}
