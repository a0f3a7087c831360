// File: internal/infra/web/server_test.go
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"video-cm-analysis/internal/config"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/usecase"
)

type testEnv struct {
	videos      *memVideoRepo
	transcripts *memTranscriptionRepo
	analyses    *memAnalysisRepo
	settings    *memSettingRepo
	queue       *stubQueue
	dispatcher  *stubDispatcher
	server      *Server
	router      http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		videos:      newMemVideoRepo(),
		transcripts: newMemTranscriptionRepo(),
		analyses:    &memAnalysisRepo{},
		settings:    newMemSettingRepo(),
		queue:       newStubQueue(),
		dispatcher:  &stubDispatcher{text: `{"summary":"ok"}`},
	}
	log := newLogger()
	videoUC := usecase.NewVideoUseCase(env.videos, env.transcripts, &mockTxManager{}, env.queue, log)
	analysisUC := usecase.NewAnalysisUseCase(env.videos, env.transcripts, env.analyses, env.dispatcher, log)
	settingsUC := usecase.NewSettingsUseCase(env.settings, log)
	auth := NewAuthManager("test-admin-secret", false, 30*time.Minute)

	upload := config.UploadConfig{Dir: t.TempDir(), MaxFileSizeMB: 1, MaxFilesPerCall: 3}
	env.server = NewServer(videoUC, analysisUC, settingsUC, env.queue, auth, upload, log)
	env.router = env.server.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func multipartUpload(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestUploadRegistersAndQueues(t *testing.T) {
	env := newTestEnv(t)
	body, ctype := multipartUpload(t, map[string][]byte{
		"campaign.mp4": []byte("fake video bytes"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[map[string]any](t, rec)
	if resp["uploaded"].(float64) != 1 {
		t.Fatalf("uploaded: %v", resp["uploaded"])
	}
	if env.queue.jobCount() != 1 {
		t.Fatalf("queued jobs: %d", env.queue.jobCount())
	}
	videos, _ := env.videos.ListAll(context.Background(), nil)
	if len(videos) != 1 || videos[0].Filename != "campaign.mp4" || videos[0].Status != model.VideoStatusUploaded {
		t.Fatalf("stored video: %+v", videos)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)
	body, ctype := multipartUpload(t, map[string][]byte{
		"malware.exe": []byte("nope"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	if env.queue.jobCount() != 0 {
		t.Fatal("rejected upload must not enqueue")
	}
}

func TestUploadMixedBatchPartiallySucceeds(t *testing.T) {
	env := newTestEnv(t)
	body, ctype := multipartUpload(t, map[string][]byte{
		"ok.mp4":  []byte("video"),
		"bad.txt": []byte("text"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[map[string]any](t, rec)
	if resp["uploaded"].(float64) != 1 {
		t.Fatalf("uploaded: %v", resp["uploaded"])
	}
	if env.queue.jobCount() != 1 {
		t.Fatalf("queued jobs: %d", env.queue.jobCount())
	}
}

func TestUploadWithNoFiles(t *testing.T) {
	env := newTestEnv(t)
	body, ctype := multipartUpload(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestGetVideoNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/videos/does-not-exist", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestRetryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.videos.Save(ctx, nil, &model.Video{ID: "v1", Filepath: "/data/v1.mp4", Status: model.VideoStatusError, ErrorMessage: "boom"})
	env.videos.Save(ctx, nil, &model.Video{ID: "v2", Filepath: "/data/v2.mp4", Status: model.VideoStatusTranscribed})

	rec := env.do(t, http.MethodPost, "/api/videos/v1/retry", nil, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("retry failed video: %d body: %s", rec.Code, rec.Body.String())
	}
	if env.queue.jobCount() != 1 {
		t.Fatalf("queued jobs: %d", env.queue.jobCount())
	}

	rec = env.do(t, http.MethodPost, "/api/videos/v2/retry", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("retry transcribed video: want 409, got %d", rec.Code)
	}
}

func TestQueueStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	elapsed := 3.2
	env.queue.snapshot = model.QueueSnapshot{
		ModelLoaded:           true,
		QueueSize:             2,
		QueueVideoIDs:         []string{"v2", "v3"},
		CurrentVideoID:        "v1",
		CurrentStep:           model.QueueStepTranscribing,
		CurrentElapsedSeconds: &elapsed,
	}

	rec := env.do(t, http.MethodGet, "/api/transcriptions/queue/status", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	resp := decodeBody[map[string]any](t, rec)
	if resp["current_video_id"] != "v1" || resp["current_step"] != "transcribing" {
		t.Fatalf("snapshot json: %v", resp)
	}
	if resp["queue_size"].(float64) != 2 {
		t.Fatalf("queue_size: %v", resp["queue_size"])
	}
}

func TestQueuePositionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.queue.positions["v1"] = 0
	env.queue.positions["v2"] = 2

	rec := env.do(t, http.MethodGet, "/api/videos/v1/queue-position", nil, nil)
	resp := decodeBody[map[string]any](t, rec)
	if resp["position"].(float64) != 0 {
		t.Fatalf("current position: %v", resp["position"])
	}

	rec = env.do(t, http.MethodGet, "/api/videos/unknown/queue-position", nil, nil)
	resp = decodeBody[map[string]any](t, rec)
	if resp["position"] != nil {
		t.Fatalf("unknown position must be null, got %v", resp["position"])
	}
}

func TestRecommendEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.videos.Save(ctx, nil, &model.Video{ID: "v1", Filename: "v1.mp4", Status: model.VideoStatusTranscribed})
	env.transcripts.SaveWithSegments(ctx, nil, &model.Transcription{VideoID: "v1", FullText: "transcript", Language: "ja"})

	rec := env.do(t, http.MethodPost, "/api/analysis/ai-recommendations", map[string]string{"instruction": "be brief"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[map[string]any](t, rec)
	result := resp["result"].(map[string]any)
	if result["summary"] != "ok" {
		t.Fatalf("result: %v", result)
	}
	if len(env.analyses.saved) != 1 {
		t.Fatalf("persisted analyses: %d", len(env.analyses.saved))
	}
}

func TestRecommendWithNothingTranscribed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/analysis/ai-recommendations", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d", rec.Code)
	}
}

func TestSettingsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/settings/api-keys", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: want 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"secret": "wrong"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: want 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"secret": "test-admin-secret"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d body: %s", rec.Code, rec.Body.String())
	}
	token := decodeBody[map[string]string](t, rec)["token"]
	if token == "" {
		t.Fatal("login must return a token")
	}

	authz := map[string]string{"Authorization": "Bearer " + token}

	rec = env.do(t, http.MethodPost, "/api/settings/api-keys", map[string]string{"key": "AIzaSyNewKey123456"}, authz)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add key: %d body: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/settings/api-keys", nil, authz)
	if rec.Code != http.StatusOK {
		t.Fatalf("list keys: %d", rec.Code)
	}
	masked := decodeBody[[]map[string]any](t, rec)
	if len(masked) != 1 {
		t.Fatalf("masked keys: %v", masked)
	}
	if m := masked[0]["masked"].(string); strings.Contains(m, "NewKey123") {
		t.Fatalf("key not masked: %q", m)
	}

	rec = env.do(t, http.MethodDelete, "/api/settings/api-keys/0", nil, authz)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove key: %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/settings/api-keys/0", nil, authz)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("remove out-of-range: want 400, got %d", rec.Code)
	}
}

func TestModelSettingEndpoints(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"secret": "test-admin-secret"}, nil)
	token := decodeBody[map[string]string](t, rec)["token"]
	authz := map[string]string{"Authorization": "Bearer " + token}

	rec = env.do(t, http.MethodGet, "/api/settings/model", nil, authz)
	if got := decodeBody[map[string]string](t, rec)["model"]; got != "gemini-2.5-flash" {
		t.Fatalf("default model: %q", got)
	}

	rec = env.do(t, http.MethodPut, "/api/settings/model", map[string]string{"model": "gemini-2.5-pro"}, authz)
	if rec.Code != http.StatusOK {
		t.Fatalf("set model: %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/settings/model", nil, authz)
	if got := decodeBody[map[string]string](t, rec)["model"]; got != "gemini-2.5-pro" {
		t.Fatalf("model after set: %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"video.mp4", "video.mp4"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\x\cm.mp4`, "cm.mp4"},
		{"a:b*c.mp4", "a_b_c.mp4"},
		{"日本のCM.mp4", "日本のCM.mp4"},
		{"..", ""},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
