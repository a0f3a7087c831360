// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/infra/adapters/ai"
)

// ===== response shapes =====

type videoJSON struct {
	ID              string  `json:"id"`
	Filename        string  `json:"filename"`
	FileSize        int64   `json:"file_size"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Status          string  `json:"status"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	Ranking         int     `json:"ranking,omitempty"`
	RankingNotes    string  `json:"ranking_notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func toVideoJSON(v *model.Video) videoJSON {
	return videoJSON{
		ID:              v.ID,
		Filename:        v.Filename,
		FileSize:        v.FileSize,
		DurationSeconds: v.DurationSeconds,
		Status:          string(v.Status),
		ErrorMessage:    v.ErrorMessage,
		Ranking:         v.Ranking,
		RankingNotes:    v.RankingNotes,
		CreatedAt:       v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type segmentJSON struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}

type transcriptJSON struct {
	VideoID               string        `json:"video_id"`
	FullText              string        `json:"full_text"`
	Language              string        `json:"language"`
	ModelUsed             string        `json:"model_used"`
	ProcessingTimeSeconds float64       `json:"processing_time_seconds"`
	Segments              []segmentJSON `json:"segments"`
}

type analysisJSON struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Scope     string          `json:"scope"`
	VideoID   string          `json:"video_id,omitempty"`
	Result    json.RawMessage `json:"result"`
	ModelUsed string          `json:"model_used"`
	CreatedAt string          `json:"created_at"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUCError maps domain errors onto HTTP statuses.
func writeUCError(w http.ResponseWriter, err error) {
	var exhausted *ai.ExhaustedError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrVideoNotRetryable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoAPIKeys):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &exhausted):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ===== health =====

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ===== uploads =====

type uploadFileResult struct {
	Filename string     `json:"filename"`
	Error    string     `json:"error,omitempty"`
	Video    *videoJSON `json:"video,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.upload.MaxFileSizeMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.upload.MaxFilesPerCall)*maxBytes+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files in request")
		return
	}
	if len(files) > s.upload.MaxFilesPerCall {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many files: %d exceeds limit of %d", len(files), s.upload.MaxFilesPerCall))
		return
	}

	if err := os.MkdirAll(s.upload.Dir, 0o755); err != nil {
		s.log.Error().Err(err).Str("dir", s.upload.Dir).Msg("cannot create upload dir")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	allowed := s.upload.AllowedExtensions()
	results := make([]uploadFileResult, 0, len(files))
	uploaded := 0

	for _, fh := range files {
		name := sanitizeFilename(fh.Filename)
		res := uploadFileResult{Filename: name}

		switch {
		case name == "":
			res.Error = "invalid filename"
		case fh.Size > maxBytes:
			res.Error = fmt.Sprintf("file exceeds %d MB limit", s.upload.MaxFileSizeMB)
		default:
			ext := strings.ToLower(filepath.Ext(name))
			if _, ok := allowed[ext]; !ok {
				res.Error = fmt.Sprintf("unsupported file type %q", ext)
				break
			}
			v, err := s.storeAndRegister(r, fh, name, ext, maxBytes)
			if err != nil {
				res.Error = err.Error()
				break
			}
			vj := toVideoJSON(v)
			res.Video = &vj
			uploaded++
		}
		results = append(results, res)
	}

	status := http.StatusCreated
	if uploaded == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{"uploaded": uploaded, "results": results})
}

func (s *Server) storeAndRegister(r *http.Request, fh *multipart.FileHeader, name, ext string, maxBytes int64) (*model.Video, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(s.upload.Dir, uuid.NewString()+ext)
	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	// LimitReader backstops the size declared in the part header.
	written, err := io.Copy(dest, io.LimitReader(src, maxBytes+1))
	closeErr := dest.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > maxBytes {
		err = fmt.Errorf("file exceeds %d MB limit", s.upload.MaxFileSizeMB)
	}
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}

	v, err := s.videoUC.Register(r.Context(), name, destPath, written)
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}
	return v, nil
}

// sanitizeFilename strips any path component and characters that are unsafe
// in a stored display name.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, r == 0x7f:
			// drop control characters
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ===== videos =====

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.videoUC.List(r.Context())
	if err != nil {
		writeUCError(w, err)
		return
	}
	out := make([]videoJSON, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoJSON(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	v, err := s.videoUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUCError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVideoJSON(v))
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := s.videoUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeUCError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	v, err := s.videoUC.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUCError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toVideoJSON(v))
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ranking int    `json:"ranking"`
		Notes   string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := s.videoUC.UpdateRanking(r.Context(), chi.URLParam(r, "id"), req.Ranking, req.Notes)
	if err != nil {
		writeUCError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVideoJSON(v))
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	t, err := s.videoUC.GetTranscript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUCError(w, err)
		return
	}
	out := transcriptJSON{
		VideoID:               t.VideoID,
		FullText:              t.FullText,
		Language:              t.Language,
		ModelUsed:             t.ModelUsed,
		ProcessingTimeSeconds: t.ProcessingTimeSeconds,
		Segments:              make([]segmentJSON, 0, len(t.Segments)),
	}
	for _, seg := range t.Segments {
		out.Segments = append(out.Segments, segmentJSON{StartTime: seg.StartTime, EndTime: seg.EndTime, Text: seg.Text})
	}
	writeJSON(w, http.StatusOK, out)
}

// ===== queue =====

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Status())
}

func (s *Server) handleQueuePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp := struct {
		VideoID  string `json:"video_id"`
		Position *int   `json:"position"`
	}{VideoID: id}
	if pos, ok := s.queue.Position(id); ok {
		resp.Position = &pos
	}
	writeJSON(w, http.StatusOK, resp)
}

// ===== analysis =====

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoID     string `json:"video_id"`
		Instruction string `json:"instruction"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, stored, err := s.analysisUC.Recommend(r.Context(), req.VideoID, req.Instruction)
	if err != nil {
		writeUCError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": stored.ID,
		"model_used":  stored.ModelUsed,
		"scope":       stored.Scope,
		"result":      result,
	})
}

func (s *Server) handleAnalysisResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	analyses, err := s.analysisUC.Results(r.Context(), limit)
	if err != nil {
		writeUCError(w, err)
		return
	}
	out := make([]analysisJSON, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, analysisJSON{
			ID:        a.ID,
			Type:      string(a.Type),
			Scope:     a.Scope,
			VideoID:   a.VideoID,
			Result:    json.RawMessage(a.ResultJSON),
			ModelUsed: a.ModelUsed,
			CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ===== admin/settings =====

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.auth.CheckSecret(req.Secret) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mint session token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.settingsUC.ListKeys(r.Context())
	if err != nil {
		writeUCError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleAddKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.settingsUC.AddKey(r.Context(), req.Key); err != nil {
		writeUCError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key index")
		return
	}
	if err := s.settingsUC.RemoveKey(r.Context(), index); err != nil {
		writeUCError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.settingsUC.GetModel(r.Context())
	if err != nil {
		writeUCError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"model": m})
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.settingsUC.SetModel(r.Context(), req.Model); err != nil {
		writeUCError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"model": req.Model})
}
