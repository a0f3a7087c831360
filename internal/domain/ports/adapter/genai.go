package adapter

import "context"

// CallErrorKind classifies a generative-AI call failure at the adapter
// boundary so the dispatcher's retry decision never inspects error strings.
type CallErrorKind int

const (
	CallErrorFatal CallErrorKind = iota
	CallErrorRateLimited
)

// CallError wraps a provider error with its retry classification.
type CallError struct {
	Kind CallErrorKind
	Err  error
}

func (e *CallError) Error() string { return e.Err.Error() }
func (e *CallError) Unwrap() error { return e.Err }

// TextGenerator issues a single generation request with one credential.
// A fresh client is built per call because credentials rotate per attempt.
type TextGenerator interface {
	Generate(ctx context.Context, apiKey, modelID, prompt string) (string, error)
}
