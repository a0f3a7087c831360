// File: internal/usecase/fakes_test.go
package usecase

import (
	"context"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type memVideoRepo struct {
	mu     sync.Mutex
	videos map[string]*model.Video
	order  []string
}

var _ repository.VideoRepository = (*memVideoRepo)(nil)

func newMemVideoRepo() *memVideoRepo {
	return &memVideoRepo{videos: make(map[string]*model.Video)}
}

func (r *memVideoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[v.ID]; !ok {
		r.order = append(r.order, v.ID)
	}
	cp := *v
	r.videos[v.ID] = &cp
	return nil
}

func (r *memVideoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memVideoRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Video, 0, len(r.order))
	for _, id := range r.order {
		if v, ok := r.videos[id]; ok {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVideoRepo) ListByStatus(ctx context.Context, tx repository.Tx, statuses ...model.VideoStatus) ([]*model.Video, error) {
	all, _ := r.ListAll(ctx, tx)
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

func (r *memVideoRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.VideoStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Status = status
	v.ErrorMessage = errorMessage
	return nil
}

func (r *memVideoRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.videos, id)
	return nil
}

type memTranscriptionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Transcription
}

var _ repository.TranscriptionRepository = (*memTranscriptionRepo)(nil)

func newMemTranscriptionRepo() *memTranscriptionRepo {
	return &memTranscriptionRepo{byID: make(map[string]*model.Transcription)}
}

func (r *memTranscriptionRepo) SaveWithSegments(ctx context.Context, tx repository.Tx, t *model.Transcription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.byID[t.VideoID] = &cp
	return nil
}

func (r *memTranscriptionRepo) FindByVideoID(ctx context.Context, tx repository.Tx, videoID string) (*model.Transcription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[videoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTranscriptionRepo) DeleteByVideoID(ctx context.Context, tx repository.Tx, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, videoID)
	return nil
}

type memAnalysisRepo struct {
	mu    sync.Mutex
	saved []*model.Analysis
}

var _ repository.AnalysisRepository = (*memAnalysisRepo)(nil)

func (r *memAnalysisRepo) Save(ctx context.Context, tx repository.Tx, a *model.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = "an-" + strconv.Itoa(len(r.saved)+1)
	}
	cp := *a
	r.saved = append(r.saved, &cp)
	return nil
}

func (r *memAnalysisRepo) ListRecent(ctx context.Context, tx repository.Tx, analysisType model.AnalysisType, limit int) ([]*model.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Analysis
	for i := len(r.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if analysisType == "" || r.saved[i].Type == analysisType {
			cp := *r.saved[i]
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
	return &memSettingRepo{values: make(map[string]string)}
}

func (r *memSettingRepo) Get(ctx context.Context, tx repository.Tx, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (r *memSettingRepo) Set(ctx context.Context, tx repository.Tx, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *memSettingRepo) GetAPIKeys(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out, nil
}

func (r *memSettingRepo) SetAPIKeys(ctx context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append([]string(nil), keys...)
	return nil
}

func (r *memSettingRepo) GetModelID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.modelID == "" {
		return "gemini-2.5-flash", nil
	}
	return r.modelID, nil
}

func (r *memSettingRepo) SetModelID(ctx context.Context, modelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelID = modelID
	return nil
}

type noopTxManager struct{}

var _ repository.TransactionManager = (*noopTxManager)(nil)

func (noopTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

type recordingQueue struct {
	mu        sync.Mutex
	jobs      []model.Job
	forgotten []string
}

var _ Enqueuer = (*recordingQueue)(nil)

func (q *recordingQueue) Enqueue(videoID, filepath string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, model.Job{VideoID: videoID, Filepath: filepath})
}

func (q *recordingQueue) Forget(videoID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.forgotten = append(q.forgotten, videoID)
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type scriptedDispatcher struct {
	mu      sync.Mutex
	prompts []string
	text    string
	modelID string
	err     error
}

var _ Dispatcher = (*scriptedDispatcher)(nil)

func (d *scriptedDispatcher) Dispatch(ctx context.Context, prompt string) (string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, prompt)
	if d.err != nil {
		return "", "", d.err
	}
	modelID := d.modelID
	if modelID == "" {
		modelID = "gemini-2.5-flash"
	}
	return d.text, modelID, nil
}
