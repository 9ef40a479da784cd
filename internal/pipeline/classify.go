package pipeline

import (
	"context"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"mldesk/pkg/types"
)

// classifierMetadata describes the ONNX model: tensor shapes and the ordered
// label set matching the output logits.
type classifierMetadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Labels      []string `json:"labels"`
	ImageSize   int      `json:"image_size"`
}

// ClassifierOptions configures an ImageClassification pipeline.
type ClassifierOptions struct {
	ModelPath    string
	MetadataPath string
	// TopK limits how many classifications are returned; 0 returns all.
	TopK int
}

// ImageClassification runs a local ONNX vision classifier behind the
// Pipeline contract. The session is a process-lifetime resource: it is never
// explicitly released, the OS reclaims it at exit.
type ImageClassification struct {
	st   state
	opts ClassifierOptions

	meta         classifierMetadata
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	// session.Run reuses the input/output tensors, so runs are serialized.
	runMu sync.Mutex
}

// ortEnvOnce initializes the ONNX runtime environment at most once per
// process, no matter how many classifiers are constructed.
var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// NewImageClassification constructs an unloaded classification adapter.
func NewImageClassification(opts ClassifierOptions) *ImageClassification {
	return &ImageClassification{
		st: state{desc: types.ModelDescriptor{
			Name:        types.CategoryImageClassification,
			Category:    types.CategoryImageClassification,
			Description: "ONNX vision transformer image classifier.",
		}},
		opts: opts,
	}
}

func (p *ImageClassification) Info() types.ModelInfo { return p.st.info() }

// Load reads the label metadata and builds the ONNX session. The classifier
// always executes on cpu; other device hints are accepted and ignored.
func (p *ImageClassification) Load(ctx context.Context, device string) error {
	return p.st.ensureLoaded(func() error {
		ortEnvOnce.Do(func() { ortEnvErr = ort.InitializeEnvironment() })
		if ortEnvErr != nil {
			return ErrLoad("onnx runtime init: " + ortEnvErr.Error())
		}
		metaRaw, err := os.ReadFile(p.opts.MetadataPath)
		if err != nil {
			return ErrLoad("read metadata: " + err.Error())
		}
		var meta classifierMetadata
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return ErrLoad("parse metadata: " + err.Error())
		}
		if len(meta.Labels) == 0 || meta.ImageSize <= 0 {
			return ErrLoad("metadata missing labels or image_size")
		}
		inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
		if err != nil {
			return ErrLoad("input tensor: " + err.Error())
		}
		outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
		if err != nil {
			inputTensor.Destroy()
			return ErrLoad("output tensor: " + err.Error())
		}
		session, err := ort.NewAdvancedSession(p.opts.ModelPath,
			[]string{"input"}, []string{"output"},
			[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
			nil)
		if err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return ErrLoad("create session: " + err.Error())
		}
		p.meta = meta
		p.session = session
		p.inputTensor = inputTensor
		p.outputTensor = outputTensor
		logEvent().Str("model", p.opts.ModelPath).Int("labels", len(meta.Labels)).
			Str("device", device).Msg("classifier session ready")
		return nil
	})
}

// Run classifies the image at the given path and returns an ordered
// label/score list, highest score first. Loads implicitly with
// DefaultDevice when no explicit Load happened before.
func (p *ImageClassification) Run(ctx context.Context, imagePath string) (types.RunPayload, error) {
	if err := p.Load(ctx, DefaultDevice); err != nil {
		return types.RunPayload{}, err
	}
	f, err := os.Open(imagePath)
	if err != nil {
		return types.RunPayload{}, ErrRun("open image: " + err.Error())
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return types.RunPayload{}, ErrRun("decode image: " + err.Error())
	}
	pixels := pixelsFromImage(img, p.meta.ImageSize)

	p.runMu.Lock()
	copy(p.inputTensor.GetData(), pixels)
	if err := p.session.Run(); err != nil {
		p.runMu.Unlock()
		return types.RunPayload{}, ErrRun("inference: " + err.Error())
	}
	logits := make([]float32, len(p.outputTensor.GetData()))
	copy(logits, p.outputTensor.GetData())
	p.runMu.Unlock()

	results := topClassifications(softmax(logits), p.meta.Labels, p.opts.TopK)
	return types.ClassificationsPayload(results), nil
}

// topClassifications pairs scores with labels and orders them by score,
// highest first, keeping at most k entries (k<=0 keeps all).
func topClassifications(scores []float32, labels []string, k int) []types.Classification {
	n := len(scores)
	if len(labels) < n {
		n = len(labels)
	}
	out := make([]types.Classification, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Classification{Label: labels[i], Score: float64(scores[i])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
