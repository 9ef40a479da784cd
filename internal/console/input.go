package console

import (
	"fmt"

	"mldesk/internal/common/fsutil"
)

// inputMode selects which of the two mutually exclusive input slots is live.
type inputMode string

const (
	modeText  inputMode = "Text"
	modeImage inputMode = "Image"
)

// selectedInput is the ephemeral user input: either a text prompt or a
// resolved image path, never both.
type selectedInput struct {
	mode      inputMode
	text      string
	imagePath string
}

func (s *selectedInput) setText(text string) {
	s.mode = modeText
	s.text = text
	s.imagePath = ""
}

func (s *selectedInput) setImage(path string) error {
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	path = expanded
	if !fsutil.PathExists(path) {
		return fmt.Errorf("image not readable: %s", path)
	}
	s.mode = modeImage
	s.imagePath = path
	s.text = ""
	return nil
}

func (s *selectedInput) clear() {
	*s = selectedInput{mode: modeText}
}

// value returns the live input string for the current mode.
func (s *selectedInput) value() string {
	if s.mode == modeImage {
		return s.imagePath
	}
	return s.text
}

func (s *selectedInput) empty() bool { return s.value() == "" }
