// File: internal/infra/web/mock_test.go
package web

import (
	"context"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
	"video-cm-analysis/internal/usecase"
)

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

type memVideoRepo struct {
	mu     sync.Mutex
	videos map[string]*model.Video
	order  []string
}

var _ repository.VideoRepository = (*memVideoRepo)(nil)

func newMemVideoRepo() *memVideoRepo {
	return &memVideoRepo{videos: map[string]*model.Video{}}
}

func (m *memVideoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[v.ID]; !ok {
		m.order = append(m.order, v.ID)
	}
	cp := *v
	m.videos[v.ID] = &cp
	return nil
}

func (m *memVideoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVideoRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Video, 0, len(m.order))
	for _, id := range m.order {
		if v, ok := m.videos[id]; ok {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memVideoRepo) ListByStatus(ctx context.Context, tx repository.Tx, statuses ...model.VideoStatus) ([]*model.Video, error) {
	all, _ := m.ListAll(ctx, tx)
	var out []*model.Video
	for _, v := range all {
		for _, s := range statuses {
			if v.Status == s {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

func (m *memVideoRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.VideoStatus, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Status = status
	v.ErrorMessage = errorMessage
	return nil
}

func (m *memVideoRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.videos, id)
	return nil
}

type memTranscriptionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Transcription
}

var _ repository.TranscriptionRepository = (*memTranscriptionRepo)(nil)

func newMemTranscriptionRepo() *memTranscriptionRepo {
	return &memTranscriptionRepo{byID: map[string]*model.Transcription{}}
}

func (m *memTranscriptionRepo) SaveWithSegments(ctx context.Context, tx repository.Tx, t *model.Transcription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.byID[t.VideoID] = &cp
	return nil
}

func (m *memTranscriptionRepo) FindByVideoID(ctx context.Context, tx repository.Tx, videoID string) (*model.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[videoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTranscriptionRepo) DeleteByVideoID(ctx context.Context, tx repository.Tx, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, videoID)
	return nil
}

type memAnalysisRepo struct {
	mu    sync.Mutex
	saved []*model.Analysis
}

var _ repository.AnalysisRepository = (*memAnalysisRepo)(nil)

func (m *memAnalysisRepo) Save(ctx context.Context, tx repository.Tx, a *model.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = "an-" + strconv.Itoa(len(m.saved)+1)
	}
	cp := *a
	m.saved = append(m.saved, &cp)
	return nil
}

func (m *memAnalysisRepo) ListRecent(ctx context.Context, tx repository.Tx, analysisType model.AnalysisType, limit int) ([]*model.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Analysis
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if analysisType == "" || m.saved[i].Type == analysisType {
			cp := *m.saved[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSettingRepo struct {
	mu      sync.Mutex
	values  map[string]string
	keys    []string
	modelID string
}

var _ repository.SettingRepository = (*memSettingRepo)(nil)

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{values: map[string]string{}}
}

func (m *memSettingRepo) Get(ctx context.Context, tx repository.Tx, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memSettingRepo) Set(ctx context.Context, tx repository.Tx, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memSettingRepo) GetAPIKeys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out, nil
}

func (m *memSettingRepo) SetAPIKeys(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append([]string(nil), keys...)
	return nil
}

func (m *memSettingRepo) GetModelID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modelID == "" {
		return "gemini-2.5-flash", nil
	}
	return m.modelID, nil
}

func (m *memSettingRepo) SetModelID(ctx context.Context, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelID = modelID
	return nil
}

type mockTxManager struct{}

var _ repository.TransactionManager = (*mockTxManager)(nil)

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// stubQueue records enqueued jobs and serves a scripted snapshot.
type stubQueue struct {
	mu        sync.Mutex
	jobs      []model.Job
	snapshot  model.QueueSnapshot
	positions map[string]int
}

var _ usecase.Enqueuer = (*stubQueue)(nil)
var _ QueueStatus = (*stubQueue)(nil)

func newStubQueue() *stubQueue {
	return &stubQueue{positions: map[string]int{}}
}

func (q *stubQueue) Enqueue(videoID, filepath string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, model.Job{VideoID: videoID, Filepath: filepath})
}

func (q *stubQueue) Forget(videoID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, j := range q.jobs {
		if j.VideoID == videoID {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return
		}
	}
}

func (q *stubQueue) Status() model.QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot
}

func (q *stubQueue) Position(videoID string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos, ok := q.positions[videoID]
	return pos, ok
}

func (q *stubQueue) jobCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type stubDispatcher struct {
	text string
	err  error
}

var _ usecase.Dispatcher = (*stubDispatcher)(nil)

func (d *stubDispatcher) Dispatch(ctx context.Context, prompt string) (string, string, error) {
	if d.err != nil {
		return "", "", d.err
	}
	return d.text, "gemini-2.5-flash", nil
}
