package types

// Outcome is the tagged result of one background task. Outcomes are produced
// exclusively by worker goroutines and consumed exclusively by the poller on
// the UI-owning goroutine.
type Outcome interface {
	outcome()
}

// LoadOK reports a successful model load.
type LoadOK struct {
	// Model that finished loading.
	Model string
	// Human-readable status line for the running log.
	Message string
}

// RunResult carries the payload of a completed single-model run.
type RunResult struct {
	Model   string
	Payload RunPayload
}

// ChainResult carries the combined result of a generate-then-classify chain:
// the persisted image path from stage one and the classifications produced by
// running stage two on that same path.
type ChainResult struct {
	ImagePath       string
	Classifications []Classification
}

// TaskError reports a failed task. Every error raised inside a background
// task is converted to one of these at the task boundary; none propagate.
type TaskError struct {
	Message string
}

func (LoadOK) outcome()      {}
func (RunResult) outcome()   {}
func (ChainResult) outcome() {}
func (TaskError) outcome()   {}

func (e TaskError) Error() string { return e.Message }
