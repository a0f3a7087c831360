package model

// QueueStep is the worker's current phase for the in-flight job.
type QueueStep string

const (
	QueueStepIdle         QueueStep = ""
	QueueStepModelLoading QueueStep = "model_loading"
	QueueStepTranscribing QueueStep = "transcribing"
)

// Job is one unit of transcription work. Jobs are never persisted; the
// durable record of pending work is the owning video's status field.
type Job struct {
	VideoID  string
	Filepath string
}

// QueueSnapshot is a point-in-time copy of pipeline progress. It is
// best-effort, in-memory state: lost on restart and rebuilt by the
// recovery scan.
type QueueSnapshot struct {
	ModelLoaded           bool      `json:"model_loaded"`
	ModelLoading          bool      `json:"model_loading"`
	QueueSize             int       `json:"queue_size"`
	QueueVideoIDs         []string  `json:"queue_video_ids"`
	CurrentVideoID        string    `json:"current_video_id,omitempty"`
	CurrentStep           QueueStep `json:"current_step"`
	CurrentElapsedSeconds *float64  `json:"current_elapsed_seconds"`
}
