package task

import (
	"SkyVault/internal/mq"
	"SkyVault/internal/repo"
	"SkyVault/internal/service"
	"SkyVault/model"
	"SkyVault/utils"
	"context"
	"encoding/json"
	"time"
)

// promoteLockTTL bounds how long a crashed worker can hold a promote lock.
const promoteLockTTL = 5 * time.Minute

// FetchMessage is the payload sent to the worker.
type FetchMessage struct {
	TaskID  uint64 `json:"task_id"`
	Attempt int    `json:"attempt"`
}

// CreateFetchTask creates and enqueues an offline fetch task.
func CreateFetchTask(userID uint64, source, fileName string, folderID *uint64) (*model.FetchTask, error) {
	if err := service.ValidateFetchSourceURL(source); err != nil {
		return nil, err
	}
	task := &model.FetchTask{
		UserID:     userID,
		Source:     source,
		FolderID:   folderID,
		FileName:   fileName,
		StagingKey: "staging/" + utils.GetToken(),
		Status:     "pending",
		Progress:   0,
	}
	if err := repo.Db.Create(task).Error; err != nil {
		return nil, err
	}
	msg := FetchMessage{
		TaskID:  task.ID,
		Attempt: 0,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		markFetchTaskFailed(task.ID, err)
		return nil, err
	}
	publisher, err := mq.GetPublisher()
	if err != nil {
		markFetchTaskFailed(task.ID, err)
		return nil, err
	}
	if err := publisher.PublishTask(context.Background(), body); err != nil {
		markFetchTaskFailed(task.ID, err)
		return nil, err
	}
	return task, nil
}

// ListFetchTasks lists fetch tasks for a user, newest first.
func ListFetchTasks(userID uint64, limit int) ([]model.FetchTask, error) {
	if limit <= 0 {
		limit = 20
	}
	var tasks []model.FetchTask
	err := repo.Db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// ProcessFetchTask executes a fetch task. The remote body is streamed into a
// staging object while being hashed, promoted to its content key, and then
// registered through the same confirm path browser uploads use, so dedup,
// quota and naming rules all apply.
func ProcessFetchTask(ctx context.Context, taskID uint64) error {
	var task model.FetchTask
	if err := repo.Db.Where("id = ?", taskID).First(&task).Error; err != nil {
		return err
	}
	if task.Status == "completed" {
		return nil
	}
	startedAt := time.Now()
	res := repo.Db.Model(&model.FetchTask{}).
		Where("id = ? AND status IN ?", taskID, []string{"pending", "retrying"}).
		Updates(map[string]interface{}{
			"status":     "running",
			"progress":   0,
			"started_at": &startedAt,
			"error_msg":  "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	hash, size, err := service.FetchToStaging(ctx, &task)
	if err != nil {
		return err
	}

	// Two workers can drain identical content at the same time. The lock
	// serializes the compose-and-remove per hash; a busy lock surfaces as a
	// transient error and the task comes back on the retry queue.
	lock := repo.NewRedisLock(repo.Redis, "promote:"+hash, promoteLockTTL)
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	err = service.PromoteStaging(ctx, task.StagingKey, hash)
	_ = lock.Unlock(ctx)
	if err != nil {
		return err
	}

	if _, err := service.ConfirmUpload(ctx, task.UserID, task.FileName, hash, size, task.FolderID); err != nil {
		return err
	}

	finishedAt := time.Now()
	return repo.Db.Model(&task).Updates(map[string]interface{}{
		"status":      "completed",
		"progress":    100,
		"finished_at": &finishedAt,
	}).Error
}

func markFetchTaskFailed(taskID uint64, err error) {
	finishedAt := time.Now()
	_ = repo.Db.Model(&model.FetchTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":      "failed",
			"error_msg":   err.Error(),
			"finished_at": &finishedAt,
		}).Error
}
