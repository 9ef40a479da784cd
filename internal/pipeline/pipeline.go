package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"mldesk/pkg/types"
)

// DefaultDevice is used when Run has to load implicitly.
const DefaultDevice = "cpu"

// Pipeline gives uniform access to one external ML pipeline.
//
// Load initializes the underlying resource on the given device and is
// idempotent: a second call is a no-op. Run performs one synchronous
// inference; if the pipeline is not yet loaded it loads itself first with
// DefaultDevice. Info is a pure read of descriptor plus loaded flag.
type Pipeline interface {
	Load(ctx context.Context, device string) error
	Run(ctx context.Context, input string) (types.RunPayload, error)
	Info() types.ModelInfo
}

// state carries descriptor and load bookkeeping shared by all pipelines.
// The mutex serializes concurrent Load calls on the same adapter; the
// original demo left that race open, here we close it.
type state struct {
	mu     sync.Mutex
	desc   types.ModelDescriptor
	loaded bool
}

// ensureLoaded runs init exactly once under the adapter lock.
func (s *state) ensureLoaded(init func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	if err := init(); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

func (s *state) info() types.ModelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.ModelInfo{ModelDescriptor: s.desc, Loaded: s.loaded}
}

// zlog is an optional structured logger shared by the package. If unset,
// pipelines stay silent.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the pipelines.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logEvent() *zerolog.Event {
	if zlog == nil {
		nop := zerolog.Nop()
		return nop.Info()
	}
	return zlog.Info()
}
