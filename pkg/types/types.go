package types

// ModelDescriptor identifies one wrapped pipeline. Immutable once constructed.
type ModelDescriptor struct {
	// Display name used for registry lookup.
	// example: Text-to-Image
	Name string `json:"name"`
	// Category of task the pipeline performs.
	// example: Text-to-Image
	Category string `json:"category"`
	// Human-friendly description.
	// example: Stable Diffusion text->image generator.
	Description string `json:"description"`
}

// ModelInfo is a read-only projection of an adapter: its descriptor plus the
// current loaded flag.
type ModelInfo struct {
	ModelDescriptor
	// True once the underlying pipeline resource has been initialized.
	Loaded bool `json:"loaded"`
}

// Pipeline categories registered at startup.
const (
	CategoryTextToImage         = "Text-to-Image"
	CategoryImageClassification = "Image Classification"
)

// Classification is a single label/score pair as produced by a classifier.
// Score is conceptually in [0,1]; ordering is whatever the classifier returned.
type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PayloadKind tags a RunPayload variant.
type PayloadKind string

const (
	PayloadImage           PayloadKind = "image"
	PayloadClassifications PayloadKind = "classifications"
)

// RunPayload is the tagged result of a single pipeline run: either an image
// persisted to disk, or an ordered list of classifications.
type RunPayload struct {
	Kind            PayloadKind      `json:"kind"`
	ImagePath       string           `json:"image_path,omitempty"`
	Classifications []Classification `json:"classifications,omitempty"`
}

// ImagePayload builds the image variant of RunPayload.
func ImagePayload(path string) RunPayload {
	return RunPayload{Kind: PayloadImage, ImagePath: path}
}

// ClassificationsPayload builds the classification variant of RunPayload.
func ClassificationsPayload(results []Classification) RunPayload {
	return RunPayload{Kind: PayloadClassifications, Classifications: results}
}
