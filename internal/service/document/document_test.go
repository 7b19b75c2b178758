package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/suggest"
	"github.com/feichai0017/docfiler/internal/testutil"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
	"github.com/feichai0017/docfiler/pkg/storage/local"
)

type fakeQueue struct {
	mu       sync.Mutex
	tasks    []*queue.Task
	statuses map[string]*queue.TaskStatus
	history  map[string][]string
	failNext error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{statuses: map[string]*queue.TaskStatus{}, history: map[string][]string{}}
}

func (q *fakeQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNext != nil {
		err := q.failNext
		q.failNext = nil
		return err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.statuses[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", queue.ErrTaskNotFound, taskID)
	}
	return s, nil
}

func (q *fakeQueue) CancelTask(ctx context.Context, taskID string) error {
	return q.SaveFinalStatus(ctx, &queue.TaskStatus{TaskID: taskID, Status: "cancelled"})
}

func (q *fakeQueue) SaveFinalStatus(ctx context.Context, status *queue.TaskStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[status.TaskID] = status
	q.history[status.TaskID] = append(q.history[status.TaskID], status.Status)
	return nil
}

type stubAnalyzer struct {
	err     error
	gotPath string
	gotData []byte
}

func (s *stubAnalyzer) Analyze(ctx context.Context, path string) (*suggest.Analysis, error) {
	s.gotPath = path
	s.gotData, _ = os.ReadFile(path)
	if s.err != nil {
		return nil, s.err
	}
	ref, _ := models.NewDocumentRef(path)
	return &suggest.Analysis{
		Document:   ref,
		Suggestion: models.FilingSuggestion{Filename: "20240115 Invoice.pdf", Destination: "Finances/Bills", Confidence: 0.9, Reasoning: "invoice"},
		ImageCount: 1,
		Provider:   "stub",
		Model:      "stub-1",
		Duration:   20 * time.Millisecond,
	}, nil
}

type fixture struct {
	svc      *DocumentService
	queue    *fakeQueue
	store    *local.LocalStorage
	analyzer *stubAnalyzer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := local.NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)
	f := &fixture{queue: newFakeQueue(), store: store, analyzer: &stubAnalyzer{}}
	f.svc = NewService(f.analyzer, f.queue, store, nil, logger.NewTestLogger(), nil)
	return f
}

func multipartFiles(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"]
}

func (f *fixture) upload(t *testing.T, name string, data []byte) (*models.ProcessingTask, error) {
	t.Helper()
	header := multipartFiles(t, map[string][]byte{name: data})[0]
	file, err := header.Open()
	require.NoError(t, err)
	defer file.Close()
	return f.svc.ProcessFile(context.Background(), file, header)
}

func TestProcessFileQueuesAnalysis(t *testing.T) {
	f := newFixture(t)
	pdf := testutil.PDFBytes(2)

	task, err := f.upload(t, "Scan 01.pdf", pdf)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, queue.TaskTypeDocumentAnalyze, task.Type)

	require.Len(t, f.queue.tasks, 1)
	queued := f.queue.tasks[0]
	assert.Equal(t, task.ID, queued.ID)
	assert.Equal(t, "uploads/"+task.ID+"/Scan 01.pdf", queued.Payload["fileKey"])

	stored, err := os.ReadFile(filepath.Join(f.store.Root(), "uploads", task.ID, "Scan 01.pdf"))
	require.NoError(t, err)
	assert.Equal(t, pdf, stored)

	status, err := f.svc.GetProcessingStatus(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status.Status)
}

func TestProcessFileRejectsUploads(t *testing.T) {
	f := newFixture(t)

	_, err := f.upload(t, "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	_, err = f.upload(t, "fake.pdf", testutil.PNGBytes(t, 200, 200))
	var invalid *InvalidUploadError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "INVALID_MIME_TYPE", invalid.Result.Errors[0].Code)

	assert.Empty(t, f.queue.tasks)
}

func TestHandleDocumentStoresResult(t *testing.T) {
	f := newFixture(t)
	pdf := testutil.PDFBytes(1)
	task, err := f.upload(t, "scan.pdf", pdf)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleDocument(context.Background(), f.queue.tasks[0]))
	assert.Equal(t, "scan.pdf", filepath.Base(f.analyzer.gotPath))
	assert.Equal(t, pdf, f.analyzer.gotData)
	assert.NoFileExists(t, f.analyzer.gotPath)
	assert.Equal(t, []string{"pending", "running", "completed"}, f.queue.history[task.ID])

	result, err := f.svc.GetAnalysisResult(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, result.TaskID)
	assert.Equal(t, "Finances/Bills/20240115 Invoice.pdf", result.Target)
	assert.Equal(t, "scan.pdf", result.Metadata.FileName)
	assert.Equal(t, int64(len(pdf)), result.Metadata.FileSize)
	assert.Equal(t, "stub", result.Metadata.Provider)
}

func TestHandleDocumentFailure(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = &common.ExtractionFailure{Path: "scan.pdf", Pages: []int{0}, Cause: errors.New("boom")}
	task, err := f.upload(t, "scan.pdf", testutil.PDFBytes(1))
	require.NoError(t, err)

	err = f.svc.HandleDocument(context.Background(), f.queue.tasks[0])
	assert.ErrorIs(t, err, common.ErrExtractionFailed)

	status, err := f.svc.GetProcessingStatus(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, status.Status)
	assert.Contains(t, status.Error, "boom")

	_, err = f.svc.GetAnalysisResult(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrTaskNotReady)
}

func TestHandleDocumentInvalidTask(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.svc.HandleDocument(context.Background(), nil))
	assert.Error(t, f.svc.HandleDocument(context.Background(), &queue.Task{
		ID: "x", Payload: map[string]interface{}{}, Metadata: map[string]string{},
	}))
}

func TestProcessBatch(t *testing.T) {
	f := newFixture(t)
	headers := multipartFiles(t, map[string][]byte{
		"a.pdf": testutil.PDFBytes(1),
		"b.png": testutil.PNGBytes(t, 300, 300),
	})

	tasks, err := f.svc.ProcessBatch(context.Background(), headers)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Len(t, f.queue.tasks, 2)

	headers = multipartFiles(t, map[string][]byte{
		"ok.pdf":  testutil.PDFBytes(1),
		"bad.txt": []byte("x"),
	})
	_, err = f.svc.ProcessBatch(context.Background(), headers)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestStatusAndCancel(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetProcessingStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, f.svc.CancelTask(context.Background(), "t1"))
	status, err := f.svc.GetProcessingStatus(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, status.Status)
}

func TestCleanupTasks(t *testing.T) {
	f := newFixture(t)
	task, err := f.upload(t, "old.pdf", testutil.PDFBytes(1))
	require.NoError(t, err)

	path := filepath.Join(f.store.Root(), "uploads", task.ID, "old.pdf")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	require.NoError(t, f.svc.CleanupTasks(context.Background()))
	assert.NoFileExists(t, path)
}
