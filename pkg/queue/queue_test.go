package queue

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestQueueFor(t *testing.T) {
	assert.Equal(t, "critical", queueFor(1))
	assert.Equal(t, "default", queueFor(2))
	assert.Equal(t, "low", queueFor(0))
	assert.Equal(t, "low", queueFor(9))
}

func TestConvertAsynqStatus(t *testing.T) {
	done := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		info     *asynq.TaskInfo
		status   string
		progress float64
	}{
		{&asynq.TaskInfo{ID: "a", State: asynq.TaskStatePending}, "pending", 0},
		{&asynq.TaskInfo{ID: "b", State: asynq.TaskStateActive}, "running", 0.5},
		{&asynq.TaskInfo{ID: "c", State: asynq.TaskStateCompleted, CompletedAt: done}, "completed", 1},
		{&asynq.TaskInfo{ID: "d", State: asynq.TaskStateArchived, LastErr: "boom"}, "failed", 0},
	}
	for _, tc := range cases {
		got := convertAsynqStatus(tc.info)
		assert.Equal(t, tc.info.ID, got.TaskID)
		assert.Equal(t, tc.status, got.Status)
		assert.Equal(t, tc.progress, got.Progress)
	}

	assert.Equal(t, "boom", convertAsynqStatus(cases[3].info).Error)
	assert.Equal(t, done, convertAsynqStatus(cases[2].info).FinishedAt)
}

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "task_status:abc", statusKey("abc"))
}
