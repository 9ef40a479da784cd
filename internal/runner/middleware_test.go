package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"mldesk/internal/pipeline"
	"mldesk/internal/registry"
	"mldesk/pkg/types"
)

// syncBuffer collects log output written from worker goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLoggedRunner(log zerolog.Logger, pipes ...*fakePipeline) (*Runner, *Inbox) {
	converted := make([]pipeline.Pipeline, len(pipes))
	for i, p := range pipes {
		converted[i] = p
	}
	inbox := NewInbox()
	return New(registry.New(converted...), inbox, "cpu", log), inbox
}

func waitLogContains(t *testing.T, sink *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(sink.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q in log output:\n%s", want, sink.String())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSubmitLogsEnteringAndExitingOnce(t *testing.T) {
	gen, cls := newFakePair()
	var sink syncBuffer
	r, inbox := newLoggedRunner(zerolog.New(&sink), gen, cls)

	var calls atomic.Int32
	r.submit(context.Background(), "load", func(ctx context.Context, emit func(types.Outcome)) {
		calls.Add(1)
		emit(types.LoadOK{Model: "m", Message: "m loaded"})
	})
	waitOutcomes(t, inbox, 1)
	// The exiting line is written after the outcome lands in the inbox.
	waitLogContains(t, &sink, "exiting")

	if got := calls.Load(); got != 1 {
		t.Fatalf("task body must run exactly once, ran %d times", got)
	}
	var entering, exiting []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(sink.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", ln, err)
		}
		switch m["message"] {
		case "entering":
			entering = append(entering, m)
		case "exiting":
			exiting = append(exiting, m)
		}
	}
	if len(entering) != 1 || len(exiting) != 1 {
		t.Fatalf("expected 1 entering and 1 exiting line, got %d and %d:\n%s",
			len(entering), len(exiting), sink.String())
	}
	id, _ := entering[0]["task"].(string)
	if id == "" || exiting[0]["task"] != id {
		t.Fatalf("entering/exiting must share a task id, got %v and %v",
			entering[0]["task"], exiting[0]["task"])
	}
	if entering[0]["op"] != "load" || exiting[0]["op"] != "load" {
		t.Fatalf("both lines must carry the op, got %v and %v",
			entering[0]["op"], exiting[0]["op"])
	}
	if exiting[0]["status"] != "ok" {
		t.Fatalf("successful task must exit with status ok, got %v", exiting[0]["status"])
	}
	if _, has := exiting[0]["elapsed"]; !has {
		t.Fatalf("exiting line must report elapsed time")
	}
}

func TestSubmitLogsErrorStatusOnTaskError(t *testing.T) {
	gen, cls := newFakePair()
	var sink syncBuffer
	r, inbox := newLoggedRunner(zerolog.New(&sink), gen, cls)

	r.submit(context.Background(), "run", func(ctx context.Context, emit func(types.Outcome)) {
		emit(types.TaskError{Message: "boom"})
	})
	waitOutcomes(t, inbox, 1)
	waitLogContains(t, &sink, "exiting")
	if !strings.Contains(sink.String(), `"status":"error"`) {
		t.Fatalf("failed task must exit with status error:\n%s", sink.String())
	}
}

func TestPanicPushUpdatesInboxGauge(t *testing.T) {
	gen, cls := newFakePair()
	cls.panicRun = true
	r, inbox := newTestRunner(gen, cls)

	r.RunOne(context.Background(), types.CategoryImageClassification, "in")
	deadline := time.Now().Add(2 * time.Second)
	for inbox.Len() < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for panic outcome")
		}
		time.Sleep(2 * time.Millisecond)
	}
	if got := testutil.ToFloat64(inboxDepth); got != float64(inbox.Len()) {
		t.Fatalf("gauge must track the panic push, got %v with %d queued", got, inbox.Len())
	}

	p := NewPoller(inbox, HandlerFunc(func(types.Outcome) {}), time.Millisecond)
	p.Poll()
	if got := testutil.ToFloat64(inboxDepth); got != 0 {
		t.Fatalf("gauge must drop to 0 after a full drain, got %v", got)
	}
}
