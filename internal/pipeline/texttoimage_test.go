package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"mldesk/pkg/types"
)

// tinyPNG returns the bytes of a small valid PNG.
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// fakeEngine runs an sdapi-compatible test server and counts calls.
func fakeEngine(t *testing.T, imgBytes []byte, txt2imgStatus int) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var optionsCalls, txt2imgCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sdapi/v1/options", func(w http.ResponseWriter, r *http.Request) {
		optionsCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/sdapi/v1/txt2img", func(w http.ResponseWriter, r *http.Request) {
		txt2imgCalls.Add(1)
		if txt2imgStatus != http.StatusOK {
			http.Error(w, "engine exploded", txt2imgStatus)
			return
		}
		var req txt2imgRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(txt2imgResponse{
			Images: []string{base64.StdEncoding.EncodeToString(imgBytes)},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &optionsCalls, &txt2imgCalls
}

func newTestGenerator(t *testing.T, engineURL string) *TextToImage {
	t.Helper()
	return NewTextToImage(GeneratorOptions{
		EngineURL: engineURL,
		Model:     "sd-test",
		OutputDir: t.TempDir(),
	})
}

func TestTextToImageLoadIdempotent(t *testing.T) {
	srv, optionsCalls, _ := fakeEngine(t, tinyPNG(t), http.StatusOK)
	p := newTestGenerator(t, srv.URL)

	if p.Info().Loaded {
		t.Fatalf("expected unloaded before Load")
	}
	if err := p.Load(context.Background(), "cpu"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := p.Load(context.Background(), "cpu"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if got := optionsCalls.Load(); got != 1 {
		t.Fatalf("expected 1 options call, got %d", got)
	}
	if !p.Info().Loaded {
		t.Fatalf("expected loaded after Load")
	}
}

func TestTextToImageRunAutoLoads(t *testing.T) {
	srv, optionsCalls, _ := fakeEngine(t, tinyPNG(t), http.StatusOK)
	p := newTestGenerator(t, srv.URL)

	payload, err := p.Run(context.Background(), "a red square")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !p.Info().Loaded {
		t.Fatalf("expected run to load implicitly")
	}
	if got := optionsCalls.Load(); got != 1 {
		t.Fatalf("expected implicit load to hit options once, got %d", got)
	}
	if payload.Kind != types.PayloadImage {
		t.Fatalf("expected image payload, got %q", payload.Kind)
	}
	if !filepath.IsAbs(payload.ImagePath) {
		t.Fatalf("expected absolute path, got %q", payload.ImagePath)
	}
	if filepath.Base(payload.ImagePath) != OutputFileName {
		t.Fatalf("expected fixed output name, got %q", payload.ImagePath)
	}
	if _, err := os.Stat(payload.ImagePath); err != nil {
		t.Fatalf("expected image written to disk: %v", err)
	}
}

func TestTextToImageRunOverwritesOutput(t *testing.T) {
	srv, _, txt2imgCalls := fakeEngine(t, tinyPNG(t), http.StatusOK)
	p := newTestGenerator(t, srv.URL)

	first, err := p.Run(context.Background(), "one")
	if err != nil {
		t.Fatalf("run one: %v", err)
	}
	second, err := p.Run(context.Background(), "two")
	if err != nil {
		t.Fatalf("run two: %v", err)
	}
	if first.ImagePath != second.ImagePath {
		t.Fatalf("expected the same fixed output path, got %q and %q", first.ImagePath, second.ImagePath)
	}
	if got := txt2imgCalls.Load(); got != 2 {
		t.Fatalf("expected 2 generations, got %d", got)
	}
}

func TestTextToImageRunEngineFailure(t *testing.T) {
	srv, _, _ := fakeEngine(t, tinyPNG(t), http.StatusInternalServerError)
	p := newTestGenerator(t, srv.URL)

	_, err := p.Run(context.Background(), "boom")
	if err == nil || !IsRunError(err) {
		t.Fatalf("expected run error, got %v", err)
	}
}

func TestTextToImageRunRejectsGarbageImage(t *testing.T) {
	srv, _, _ := fakeEngine(t, []byte("not a png"), http.StatusOK)
	p := newTestGenerator(t, srv.URL)

	_, err := p.Run(context.Background(), "garbage")
	if err == nil || !IsRunError(err) {
		t.Fatalf("expected run error on invalid png, got %v", err)
	}
}

func TestTextToImageLoadEngineUnreachable(t *testing.T) {
	p := NewTextToImage(GeneratorOptions{
		EngineURL: "http://127.0.0.1:1", // nothing listens here
		Model:     "sd-test",
		OutputDir: t.TempDir(),
	})
	err := p.Load(context.Background(), "cpu")
	if err == nil || !IsLoadError(err) {
		t.Fatalf("expected load error, got %v", err)
	}
	if p.Info().Loaded {
		t.Fatalf("failed load must leave adapter unloaded")
	}
}
