package configuration

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Script kinds understood by the kernel.
const (
	ScriptOneShot         = "one-shot"
	ScriptBoundedPeriodic = "bounded-periodic"
	ScriptMultiStage      = "multi-stage"
)

// Node types of [ImageNode].
const (
	NodeFile      = "file"
	NodeDirectory = "directory"
)

//go:embed image.yaml
var defaultImage []byte

// Image is the boot image of the kernel.
type Image struct {
	Home       string        `yaml:"home"`
	Motd       string        `yaml:"motd"`
	Filesystem []ImageNode   `yaml:"filesystem"`
	Scripts    []ScriptImage `yaml:"scripts"`
	Generic    ScriptImage   `yaml:"generic"`
	Boot       BootImage     `yaml:"boot"`
}

// ImageNode is a filesystem node created at boot. Parents must precede their
// children.
type ImageNode struct {
	Path    string `yaml:"path"`
	Type    string `yaml:"type"`
	Content string `yaml:"content"`
}

// ScriptImage describes the simulated behavior of a script. Text fields are
// templates receiving the script's name as .Name and a rand function.
type ScriptImage struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Start lines are printed when the script starts, followed by Commands
	// dispatched on behalf of the script.
	Start    []string `yaml:"start"`
	Commands []string `yaml:"commands"`

	// Duration is the delay of a one-shot completion.
	Duration time.Duration `yaml:"duration"`

	Ticks    int           `yaml:"ticks"`
	Interval time.Duration `yaml:"interval"`
	SubDelay time.Duration `yaml:"sub_delay"`
	On       string        `yaml:"on"`
	Off      string        `yaml:"off"`

	Stages []StageImage `yaml:"stages"`

	// Done lines are printed on completion.
	Done []string `yaml:"done"`
}

// StageImage is a delayed emission of a multi-stage script.
type StageImage struct {
	Delay time.Duration `yaml:"delay"`
	Lines []string      `yaml:"lines"`
}

// BootImage is the boot message sequence. Settle is the delay between the
// last step and the end of booting.
type BootImage struct {
	Settle time.Duration `yaml:"settle"`
	Steps  []BootStep    `yaml:"steps"`
}

// BootStep is one message of the boot sequence.
type BootStep struct {
	Delay     time.Duration `yaml:"delay"`
	Message   string        `yaml:"message"`
	Progress  int           `yaml:"progress"`
	KernelLog string        `yaml:"kernel_log"`
}

// LoadImage decodes the boot image at path, or the embedded image if path is
// empty.
func LoadImage(path string) (*Image, error) {
	data := defaultImage

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("(config) failed to read image: %w", err)
		}
		data = b
	}

	return ParseImage(data)
}

// ParseImage decodes and validates a YAML boot image.
func ParseImage(data []byte) (*Image, error) {
	img := &Image{}

	if err := yaml.Unmarshal(data, img); err != nil {
		return nil, fmt.Errorf("(config) failed to decode image: %w", err)
	}

	if err := img.Validate(); err != nil {
		return nil, err
	}

	return img, nil
}

// Script returns the catalog entry of a script by name.
func (img *Image) Script(name string) (ScriptImage, bool) {
	for _, s := range img.Scripts {
		if s.Name == name {
			return s, true
		}
	}

	return ScriptImage{}, false
}

// Validate checks the image for structural errors.
func (img *Image) Validate() error {
	if !strings.HasPrefix(img.Home, "/") {
		return fmt.Errorf("(config) home %q is not absolute: %w", img.Home, ErrBadImage)
	}

	for i := range img.Filesystem {
		n := &img.Filesystem[i]
		if n.Type == "" {
			n.Type = NodeFile
		}

		if !strings.HasPrefix(n.Path, "/") {
			return fmt.Errorf("(config) node %q is not absolute: %w", n.Path, ErrBadImage)
		}
		if n.Type != NodeFile && n.Type != NodeDirectory {
			return fmt.Errorf("(config) node %q has type %q: %w", n.Path, n.Type, ErrBadImage)
		}
	}

	seen := make(map[string]struct{}, len(img.Scripts))

	for _, s := range img.Scripts {
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("(config) duplicate script %q: %w", s.Name, ErrBadImage)
		}
		seen[s.Name] = struct{}{}

		if err := s.validate(); err != nil {
			return err
		}
	}

	if img.Generic.Kind == "" {
		img.Generic.Kind = ScriptOneShot
	}
	if err := img.Generic.validate(); err != nil {
		return err
	}

	prev := 0
	for _, step := range img.Boot.Steps {
		if step.Delay < 0 || step.Progress < prev || step.Progress > 100 {
			return fmt.Errorf("(config) boot step %q: %w", step.Message, ErrBadImage)
		}
		prev = step.Progress
	}

	return nil
}

func (s ScriptImage) validate() error {
	switch s.Kind {
	case ScriptOneShot:
		if s.Duration < 0 {
			return fmt.Errorf("(config) script %q: negative duration: %w", s.Name, ErrBadImage)
		}
	case ScriptBoundedPeriodic:
		if s.Ticks <= 0 || s.SubDelay <= 0 || s.SubDelay >= s.Interval {
			return fmt.Errorf("(config) script %q: bad period: %w", s.Name, ErrBadImage)
		}
	case ScriptMultiStage:
		if len(s.Stages) == 0 {
			return fmt.Errorf("(config) script %q: no stages: %w", s.Name, ErrBadImage)
		}
		for _, st := range s.Stages {
			if st.Delay < 0 {
				return fmt.Errorf("(config) script %q: negative stage delay: %w", s.Name, ErrBadImage)
			}
		}
	default:
		return fmt.Errorf("(config) script %q: unknown kind %q: %w", s.Name, s.Kind, ErrBadImage)
	}

	return nil
}
