// Package runner decouples slow model calls from the UI-owning goroutine.
// Each operation spawns one worker goroutine which reports exactly through
// the Inbox; workers never touch presentation state. Tasks are not pooled,
// not retried and not cancellable once started; nothing stops the user from
// submitting overlapping work on the same adapter.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"mldesk/internal/pipeline"
	"mldesk/internal/registry"
	"mldesk/pkg/types"
)

// Runner executes model operations in the background and delivers typed
// outcomes to the inbox.
type Runner struct {
	reg    *registry.Registry
	inbox  *Inbox
	device string
	log    zerolog.Logger
}

// New constructs a Runner submitting outcomes to inbox. The device hint is
// forwarded to explicit loads.
func New(reg *registry.Registry, inbox *Inbox, device string, log zerolog.Logger) *Runner {
	if device == "" {
		device = pipeline.DefaultDevice
	}
	return &Runner{reg: reg, inbox: inbox, device: device, log: log}
}

// LoadOne loads the named adapter in the background.
func (r *Runner) LoadOne(ctx context.Context, name string) {
	r.submit(ctx, "load", func(ctx context.Context, emit func(types.Outcome)) {
		p, err := r.reg.Get(name)
		if err != nil {
			emit(types.TaskError{Message: err.Error()})
			return
		}
		if err := p.Load(ctx, r.device); err != nil {
			emit(types.TaskError{Message: fmt.Sprintf("load %s: %v", name, err)})
			return
		}
		emit(types.LoadOK{Model: name, Message: fmt.Sprintf("%s loaded on %s", name, r.device)})
	})
}

// LoadAll sequentially loads every registered adapter. Successes surface as
// individual LoadOK outcomes as they complete; failures are accumulated into
// one aggregate TaskError naming each failing model.
func (r *Runner) LoadAll(ctx context.Context) {
	r.submit(ctx, "load_all", func(ctx context.Context, emit func(types.Outcome)) {
		var failures []string
		for _, name := range r.reg.Names() {
			p, err := r.reg.Get(name)
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			if err := p.Load(ctx, r.device); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			emit(types.LoadOK{Model: name, Message: fmt.Sprintf("%s loaded on %s", name, r.device)})
		}
		if len(failures) > 0 {
			emit(types.TaskError{Message: "load all: " + strings.Join(failures, "; ")})
		}
	})
}

// RunOne runs the named adapter on the given input in the background.
func (r *Runner) RunOne(ctx context.Context, name, input string) {
	r.submit(ctx, "run", func(ctx context.Context, emit func(types.Outcome)) {
		p, err := r.reg.Get(name)
		if err != nil {
			emit(types.TaskError{Message: err.Error()})
			return
		}
		payload, err := p.Run(ctx, input)
		if err != nil {
			emit(types.TaskError{Message: fmt.Sprintf("run %s: %v", name, err)})
			return
		}
		emit(types.RunResult{Model: name, Payload: payload})
	})
}

// RunChain generates an image from the prompt with the text-to-image
// adapter, then classifies the produced file with the other registered
// adapter, and reports one ChainResult. Either stage failing aborts the
// chain with a single TaskError; a stage-one image already written to disk
// is left in place.
func (r *Runner) RunChain(ctx context.Context, prompt string) {
	r.submit(ctx, "chain", func(ctx context.Context, emit func(types.Outcome)) {
		genName, clsName, err := r.chainPair()
		if err != nil {
			emit(types.TaskError{Message: "chain: " + err.Error()})
			return
		}
		gen, err := r.reg.Get(genName)
		if err != nil {
			emit(types.TaskError{Message: "chain: " + err.Error()})
			return
		}
		generated, err := gen.Run(ctx, prompt)
		if err != nil {
			emit(types.TaskError{Message: fmt.Sprintf("chain %s: %v", genName, err)})
			return
		}
		if generated.Kind != types.PayloadImage || generated.ImagePath == "" {
			emit(types.TaskError{Message: fmt.Sprintf("chain %s: produced no image path", genName)})
			return
		}
		cls, err := r.reg.Get(clsName)
		if err != nil {
			emit(types.TaskError{Message: "chain: " + err.Error()})
			return
		}
		classified, err := cls.Run(ctx, generated.ImagePath)
		if err != nil {
			emit(types.TaskError{Message: fmt.Sprintf("chain %s: %v", clsName, err)})
			return
		}
		emit(types.ChainResult{
			ImagePath:       generated.ImagePath,
			Classifications: classified.Classifications,
		})
	})
}

// chainPair resolves the generate/classify pairing from the two-model
// registry: the text-to-image adapter goes first, the remaining one second.
func (r *Runner) chainPair() (genName, clsName string, err error) {
	for _, name := range r.reg.Names() {
		p, getErr := r.reg.Get(name)
		if getErr != nil {
			return "", "", getErr
		}
		if p.Info().Category == types.CategoryTextToImage {
			other, otherErr := r.reg.OtherThan(name)
			if otherErr != nil {
				return "", "", otherErr
			}
			return name, other, nil
		}
	}
	return "", "", fmt.Errorf("no text-to-image model registered")
}
