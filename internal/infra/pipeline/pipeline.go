// File: internal/infra/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/adapter"
	"video-cm-analysis/internal/domain/ports/repository"
	"video-cm-analysis/internal/infra/metrics"
)

// EngineProvider hands out the lazily-constructed speech engine singleton
// and exposes its load state for the queue snapshot.
type EngineProvider interface {
	Get(ctx context.Context) (adapter.SpeechEngine, error)
	Loaded() bool
	Loading() bool
}

// Pipeline owns the transcription job queue and its single worker loop.
//
// Jobs are processed strictly one at a time, in submission order: the speech
// engine is too heavy to run twice concurrently, so sequencing here is the
// admission control for the whole system. Enqueue never blocks and request
// paths only append to the queue or read the registry.
type Pipeline struct {
	videos      repository.VideoRepository
	transcripts repository.TranscriptionRepository
	tm          repository.TransactionManager
	engines     EngineProvider
	language    string

	registry *Registry

	qmu   sync.Mutex
	qcond *sync.Cond
	jobs  []model.Job

	startOnce sync.Once
	log       *zerolog.Logger
}

func New(
	videos repository.VideoRepository,
	transcripts repository.TranscriptionRepository,
	tm repository.TransactionManager,
	engines EngineProvider,
	language string,
	logger *zerolog.Logger,
) *Pipeline {
	l := logger.With().Str("component", "Pipeline").Logger()
	p := &Pipeline{
		videos:      videos,
		transcripts: transcripts,
		tm:          tm,
		engines:     engines,
		language:    language,
		registry:    NewRegistry(),
		log:         &l,
	}
	p.qcond = sync.NewCond(&p.qmu)
	return p
}

// Enqueue appends a job to the unbounded FIFO and lazily starts the worker
// on first use. It never blocks and never fails; the job is guaranteed to be
// picked up exactly once, in submission order.
func (p *Pipeline) Enqueue(videoID, filepath string) {
	p.registry.AddPending(videoID)

	p.qmu.Lock()
	p.jobs = append(p.jobs, model.Job{VideoID: videoID, Filepath: filepath})
	metrics.SetQueueDepth(len(p.jobs))
	p.qmu.Unlock()
	p.qcond.Signal()

	p.startOnce.Do(func() {
		go p.run()
	})
}

// Forget drops a queued job whose entity was deleted before the worker
// reached it, so queue views stop listing a video that no longer exists.
// The in-progress job cannot be forgotten; the worker notices the missing
// entity on its own and skips it.
func (p *Pipeline) Forget(videoID string) {
	p.qmu.Lock()
	for i, j := range p.jobs {
		if j.VideoID == videoID {
			p.jobs = append(p.jobs[:i], p.jobs[i+1:]...)
			break
		}
	}
	metrics.SetQueueDepth(len(p.jobs))
	p.qmu.Unlock()

	p.registry.RemovePending(videoID)
}

// Status returns an atomic copy of the queue snapshot with engine load
// flags filled in.
func (p *Pipeline) Status() model.QueueSnapshot {
	snap := p.registry.Snapshot()
	snap.ModelLoaded = p.engines.Loaded()
	snap.ModelLoading = p.engines.Loading()
	return snap
}

// Position reports the queue position of a video: 0 when in progress,
// 1-based while waiting, ok=false when unknown.
func (p *Pipeline) Position(videoID string) (int, bool) {
	return p.registry.Position(videoID)
}

// WarmUp triggers engine construction ahead of the first job. Failures are
// logged only; the first real job retries.
func (p *Pipeline) WarmUp(ctx context.Context) {
	if _, err := p.engines.Get(ctx); err != nil {
		p.log.Warn().Err(err).Msg("engine warm-up failed, will retry on first job")
	}
}

func (p *Pipeline) dequeue() model.Job {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	for len(p.jobs) == 0 {
		p.qcond.Wait()
	}
	job := p.jobs[0]
	p.jobs = p.jobs[1:]
	metrics.SetQueueDepth(len(p.jobs))
	return job
}

// run is the worker loop. It lives for the remainder of the process and
// must never exit or propagate a job failure.
func (p *Pipeline) run() {
	p.log.Info().Msg("transcription worker started")
	ctx := context.Background()

	for {
		job := p.dequeue()
		p.registry.BeginJob(job.VideoID)

		start := time.Now()
		err := p.process(ctx, job)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			p.log.Error().Err(err).Str("video_id", job.VideoID).Msg("transcription failed")
			p.markError(job.VideoID, err)
			metrics.IncTranscriptionJob("error")
		} else {
			metrics.IncTranscriptionJob("transcribed")
			metrics.ObserveTranscriptionDuration(elapsed)
		}
		p.registry.EndJob()
	}
}

func (p *Pipeline) process(ctx context.Context, job model.Job) error {
	video, err := p.videos.FindByID(ctx, nil, job.VideoID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Entity deleted while queued; nothing to do.
			p.log.Warn().Str("video_id", job.VideoID).Msg("queued video no longer exists")
			return nil
		}
		return err
	}

	if err := p.videos.UpdateStatus(ctx, nil, video.ID, model.VideoStatusTranscribing, ""); err != nil {
		return err
	}

	p.registry.SetStep(model.QueueStepModelLoading)
	eng, err := p.engines.Get(ctx)
	if err != nil {
		return err
	}

	p.registry.SetStep(model.QueueStepTranscribing)
	start := time.Now()
	result, err := eng.Transcribe(ctx, job.Filepath, p.language)
	if err != nil {
		return err
	}
	processing := time.Since(start).Seconds()

	t := &model.Transcription{
		VideoID:               video.ID,
		FullText:              result.Text,
		Language:              result.Language,
		ModelUsed:             eng.ModelName(),
		ProcessingTimeSeconds: processing,
	}
	for _, s := range result.Segments {
		t.Segments = append(t.Segments, model.Segment{StartTime: s.Start, EndTime: s.End, Text: s.Text})
	}

	// Transcript, segments and the terminal status land in one transaction
	// so a crash mid-write leaves the entity recoverable, not half-done.
	err = p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := p.transcripts.SaveWithSegments(ctx, tx, t); err != nil {
			return err
		}
		return p.videos.UpdateStatus(ctx, tx, video.ID, model.VideoStatusTranscribed, "")
	})
	if err != nil {
		return err
	}

	p.log.Info().
		Str("video_id", video.ID).
		Float64("processing_seconds", processing).
		Int("segments", len(t.Segments)).
		Msg("video transcribed")
	return nil
}

// markError records the failure on the entity with a bounded message. The
// worker keeps running regardless of what happened to this job.
func (p *Pipeline) markError(videoID string, cause error) {
	msg := model.TruncateError(cause.Error())
	// Background context: the terminal status must be written even if the
	// job's own context is gone.
	if err := p.videos.UpdateStatus(context.Background(), nil, videoID, model.VideoStatusError, msg); err != nil {
		p.log.Error().Err(err).Str("video_id", videoID).Msg("failed to mark error state")
	}
}
