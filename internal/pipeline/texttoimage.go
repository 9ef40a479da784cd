package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mldesk/pkg/types"
)

// OutputFileName is the fixed name of the generated image, overwritten on
// each generation.
const OutputFileName = "generated_image.png"

// GeneratorOptions configures a TextToImage pipeline.
type GeneratorOptions struct {
	// Base URL of a txt2img HTTP engine (sdapi-compatible).
	EngineURL string
	// Checkpoint name selected on the engine at load time.
	Model string
	// Sampling parameters; zero values fall back to engine defaults.
	Steps  int
	Width  int
	Height int
	// Directory the generated image is written into.
	OutputDir string
	// Per-request timeout. Generation is slow; default is generous.
	RequestTimeout time.Duration
}

// TextToImage wraps a Stable Diffusion style txt2img engine behind the
// Pipeline contract. The engine process itself is an external collaborator;
// this adapter only selects the checkpoint and submits prompts.
type TextToImage struct {
	st   state
	opts GeneratorOptions
	// half precision is chosen at load time from the device hint; it trades
	// accuracy for speed on accelerator devices only.
	halfPrecision bool
	httpc         *http.Client
}

// NewTextToImage constructs an unloaded text-to-image adapter.
func NewTextToImage(opts GeneratorOptions) *TextToImage {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Minute
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		IdleConnTimeout: 90 * time.Second,
	}
	return &TextToImage{
		st: state{desc: types.ModelDescriptor{
			Name:        types.CategoryTextToImage,
			Category:    types.CategoryTextToImage,
			Description: "Stable Diffusion text->image generator (external engine).",
		}},
		opts: opts,
		// Timeout stays 0 on the client; per-request deadlines come from context.
		httpc: &http.Client{Transport: tr, Timeout: 0},
	}
}

func (p *TextToImage) Info() types.ModelInfo { return p.st.info() }

// Load selects the configured checkpoint on the engine. The device hint only
// picks numeric precision: reduced precision on accelerators, full on cpu.
func (p *TextToImage) Load(ctx context.Context, device string) error {
	return p.st.ensureLoaded(func() error {
		p.halfPrecision = device == "cuda" || device == "mps"
		payload := map[string]any{
			"sd_model_checkpoint": p.opts.Model,
			"upcast_sampling":     !p.halfPrecision,
		}
		if err := p.postJSON(ctx, "/sdapi/v1/options", payload, nil); err != nil {
			return ErrLoad(fmt.Sprintf("select checkpoint %q: %v", p.opts.Model, err))
		}
		logEvent().Str("model", p.opts.Model).Str("device", device).
			Bool("half_precision", p.halfPrecision).Msg("text-to-image engine ready")
		return nil
	})
}

// txt2imgRequest is the engine payload for one generation.
type txt2imgRequest struct {
	Prompt string `json:"prompt"`
	Steps  int    `json:"steps,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// txt2imgResponse is the minimal subset of the engine response we consume.
type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Run generates one image from the prompt, writes it to the fixed output
// file and returns the absolute path. Loads implicitly with DefaultDevice
// when no explicit Load happened before.
func (p *TextToImage) Run(ctx context.Context, prompt string) (types.RunPayload, error) {
	if err := p.Load(ctx, DefaultDevice); err != nil {
		return types.RunPayload{}, err
	}
	req := txt2imgRequest{
		Prompt: prompt,
		Steps:  p.opts.Steps,
		Width:  p.opts.Width,
		Height: p.opts.Height,
	}
	var resp txt2imgResponse
	if err := p.postJSON(ctx, "/sdapi/v1/txt2img", req, &resp); err != nil {
		return types.RunPayload{}, ErrRun(err.Error())
	}
	if len(resp.Images) == 0 {
		return types.RunPayload{}, ErrRun("engine returned no images")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Images[0])
	if err != nil {
		return types.RunPayload{}, ErrRun("decode image: " + err.Error())
	}
	// Sanity-check the bytes are a real PNG before persisting.
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		return types.RunPayload{}, ErrRun("invalid png from engine: " + err.Error())
	}
	out := filepath.Join(p.opts.OutputDir, OutputFileName)
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return types.RunPayload{}, ErrRun("write image: " + err.Error())
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		abs = out
	}
	return types.ImagePayload(abs), nil
}

// postJSON posts a JSON payload to the engine and optionally decodes the
// response body into out.
func (p *TextToImage) postJSON(ctx context.Context, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	url := strings.TrimRight(p.opts.EngineURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("engine %s: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
