// File: internal/infra/web/server.go
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"video-cm-analysis/internal/config"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/usecase"
)

// QueueStatus is the read-only view of the transcription pipeline the API
// exposes.
type QueueStatus interface {
	Status() model.QueueSnapshot
	Position(videoID string) (int, bool)
}

type Server struct {
	videoUC    *usecase.VideoUseCase
	analysisUC *usecase.AnalysisUseCase
	settingsUC *usecase.SettingsUseCase
	queue      QueueStatus
	auth       *AuthManager
	upload     config.UploadConfig
	log        *zerolog.Logger
}

func NewServer(
	videoUC *usecase.VideoUseCase,
	analysisUC *usecase.AnalysisUseCase,
	settingsUC *usecase.SettingsUseCase,
	queue QueueStatus,
	auth *AuthManager,
	upload config.UploadConfig,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		videoUC:    videoUC,
		analysisUC: analysisUC,
		settingsUC: settingsUC,
		queue:      queue,
		auth:       auth,
		upload:     upload,
		log:        &l,
	}
}

// Router builds the public API router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/videos", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/", s.handleListVideos)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetVideo)
			r.Delete("/", s.handleDeleteVideo)
			r.Post("/retry", s.handleRetry)
			r.Put("/ranking", s.handleRanking)
			r.Get("/transcript", s.handleTranscript)
			r.Get("/queue-position", s.handleQueuePosition)
		})
	})

	r.Get("/api/transcriptions/queue/status", s.handleQueueStatus)

	r.Route("/api/analysis", func(r chi.Router) {
		r.Post("/ai-recommendations", s.handleRecommend)
		r.Get("/results", s.handleAnalysisResults)
	})

	r.Post("/api/admin/login", s.handleLogin)
	r.Post("/api/admin/logout", s.handleLogout)

	r.Route("/api/settings", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/api-keys", s.handleListKeys)
		r.Post("/api-keys", s.handleAddKey)
		r.Delete("/api-keys/{index}", s.handleRemoveKey)
		r.Get("/model", s.handleGetModel)
		r.Put("/model", s.handleSetModel)
	})

	return r
}

// requireAdmin guards the settings routes behind a valid admin session.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
