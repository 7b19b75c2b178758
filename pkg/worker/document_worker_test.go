package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/agent/provider"
	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
)

type recordingHandler struct {
	got *queue.Task
	err error
}

func (h *recordingHandler) HandleDocument(ctx context.Context, task *queue.Task) error {
	h.got = task
	return h.err
}

func newTestWorker(t *testing.T, h TaskHandler) *DocumentWorker {
	t.Helper()
	w, err := NewDocumentWorker(&Config{RedisAddr: "localhost:0", Concurrency: 1}, 0, h, logger.NewTestLogger())
	require.NoError(t, err)
	return w
}

func analyzeTask(t *testing.T, task queue.Task) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(task)
	require.NoError(t, err)
	return asynq.NewTask(queue.TaskTypeDocumentAnalyze, payload)
}

func validTask() queue.Task {
	return queue.Task{
		ID:       "task-1",
		Type:     queue.TaskTypeDocumentAnalyze,
		Payload:  map[string]interface{}{"fileKey": "uploads/task-1/a.pdf"},
		Metadata: map[string]string{"filename": "a.pdf"},
	}
}

func TestHandleAnalyzeDelegates(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWorker(t, h)

	require.NoError(t, w.handleDocumentAnalyze(context.Background(), analyzeTask(t, validTask())))
	require.NotNil(t, h.got)
	assert.Equal(t, "task-1", h.got.ID)
	assert.Equal(t, "uploads/task-1/a.pdf", h.got.Payload["fileKey"])
}

func TestHandleAnalyzeBadPayloadSkipsRetry(t *testing.T) {
	w := newTestWorker(t, &recordingHandler{})

	err := w.handleDocumentAnalyze(context.Background(), asynq.NewTask(queue.TaskTypeDocumentAnalyze, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.handleDocumentAnalyze(context.Background(), analyzeTask(t, queue.Task{ID: "x"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleAnalyzeRetryPolicy(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"unsupported", &common.UnsupportedFormatError{Path: "a.txt", Extension: ".txt"}, true},
		{"extraction", common.WrapError(&common.ExtractionFailure{Path: "a.pdf"}, "failed to analyze document"), true},
		{"not found", &common.NotFoundError{Path: "a.pdf"}, true},
		{"bad request", &provider.APIError{Provider: "claude", StatusCode: 400}, true},
		{"rate limited", &provider.APIError{Provider: "claude", StatusCode: 429}, false},
		{"server error", &provider.APIError{Provider: "openai", StatusCode: 503}, false},
		{"malformed", &common.MalformedResponseError{Raw: "x"}, false},
		{"network", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorker(t, &recordingHandler{err: tc.err})
			err := w.handleDocumentAnalyze(context.Background(), analyzeTask(t, validTask()))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.permanent, errors.Is(err, asynq.SkipRetry))
		})
	}
}
