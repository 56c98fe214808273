package models

import (
	"fmt"
	"strings"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Metadata keys written by ultralytics exporters.
const (
	KeyInputSize   = "imgsz"
	KeyStride      = "stride"
	KeyNames       = "names"
	KeyTask        = "task"
	KeyChannels    = "channels"
	KeyKptShape    = "kpt_shape"
	KeyDescription = "description"
	KeyAuthor      = "author"
	KeyVersion     = "version"
	KeyDate        = "date"
)

// DefaultChannels is the channel count assumed when neither the caller nor the
// model metadata states one.
const DefaultChannels = 3

var (
	// ErrMissingInputSize is returned when the input size cannot be resolved.
	ErrMissingInputSize = errors.New("metadata: imgsz is required")
	// ErrMissingTask is returned when the task cannot be resolved.
	ErrMissingTask = errors.New("metadata: task is required")
	// ErrInvalidMetadata is returned when a metadata value cannot be parsed.
	ErrInvalidMetadata = errors.New("metadata: invalid value")
)

// Metadata describes the input contract and output semantics of a model.
// It is populated once at load time and treated as read-only afterwards.
type Metadata struct {
	// InputSize is the network input width and height.
	InputSize images.Size `json:"input_size"`
	// Stride is the network's downsampling factor.
	Stride int `json:"stride"`
	// ClassCount is the number of class-score slots per prediction.
	ClassCount int `json:"class_count"`
	// Names maps class indices to labels.
	Names ClassNames `json:"names"`
	// Channels is the expected image channel count.
	Channels int `json:"channels"`
	// Task selects the decode path.
	Task Task `json:"task"`
	// KeypointShape is [count, dims] for pose models.
	KeypointShape []int `json:"kpt_shape,omitempty"`

	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Version     string `json:"version,omitempty"`
	Date        string `json:"date,omitempty"`
}

// Lookup is a key-value source of model metadata.
type Lookup interface {
	// Lookup returns the value for key and whether it was present.
	Lookup(key string) (string, bool, error)
}

// MapLookup serves metadata from an in-memory map.
type MapLookup map[string]string

// Lookup implements Lookup.
func (m MapLookup) Lookup(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

// NewMetadata builds metadata from explicitly supplied values without any
// metadata lookup.
//
// Arguments:
//   - task: The model task.
//   - inputSize: The network input size.
//   - stride: The network stride.
//   - names: The class labels; ClassCount is derived from them.
//   - channels: The expected channel count, 0 for the default.
//
// Returns:
//   - The metadata, or an error if a required value is missing.
func NewMetadata(task Task, inputSize images.Size, stride int, names ClassNames, channels int) (Metadata, error) {
	m := Metadata{
		InputSize:  inputSize,
		Stride:     stride,
		Names:      names.Clone(),
		ClassCount: len(names),
		Channels:   channels,
		Task:       task,
	}
	if m.Channels == 0 {
		m.Channels = DefaultChannels
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// Validate checks that the required fields are resolved.
func (m Metadata) Validate() error {
	if m.InputSize.Width <= 0 || m.InputSize.Height <= 0 {
		return errors.Wrapf(ErrMissingInputSize, "got %dx%d", m.InputSize.Width, m.InputSize.Height)
	}
	if m.Task == "" {
		return ErrMissingTask
	}
	if m.Channels != 1 && m.Channels != 3 {
		return errors.Wrapf(ErrInvalidMetadata, "channels %d, expected 1 or 3", m.Channels)
	}
	return nil
}

// InputShape returns the network input tensor shape (1, channels, height, width).
func (m Metadata) InputShape() []int64 {
	return []int64{1, int64(m.Channels), int64(m.InputSize.Height), int64(m.InputSize.Width)}
}

// ResizeTarget returns the size images are resized to before inference.
func (m Metadata) ResizeTarget() images.Size {
	return m.InputSize
}

// KeypointDims returns the keypoint count and values per keypoint. Without
// kpt_shape the count is 0 (derived from the output shape) and keypoints are
// assumed to be (x, y, score) triples.
func (m Metadata) KeypointDims() (count, dims int) {
	if len(m.KeypointShape) == 2 {
		return m.KeypointShape[0], m.KeypointShape[1]
	}
	return 0, 3
}

// Resolve fills metadata from a lookup, starting from base. Values supplied in
// base win for names, class count and channels; stride keeps its base value
// when absent. Input size and task are required.
//
// Arguments:
//   - lookup: The metadata source.
//   - base: Caller-supplied values.
//
// Returns:
//   - The resolved metadata, or an error when a required key is absent or a
//     value cannot be parsed.
func Resolve(lookup Lookup, base Metadata) (Metadata, error) {
	m := base
	m.Names = base.Names.Clone()

	// imgsz
	raw, ok, err := lookup.Lookup(KeyInputSize)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "lookup imgsz")
	}
	if !ok {
		return Metadata{}, ErrMissingInputSize
	}
	size, err := parseInputSize(raw)
	if err != nil {
		return Metadata{}, err
	}
	m.InputSize = size

	// stride
	raw, ok, err = lookup.Lookup(KeyStride)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "lookup stride")
	}
	if ok {
		if err := parseLiteral(raw, &m.Stride); err != nil {
			return Metadata{}, errors.Wrap(err, KeyStride)
		}
	} else {
		log.Warn().Int("stride", m.Stride).Msg("stride not found in model metadata, keeping configured value")
	}

	// names
	if len(m.Names) == 0 {
		raw, ok, err = lookup.Lookup(KeyNames)
		if err != nil {
			return Metadata{}, errors.Wrap(err, "lookup names")
		}
		if ok {
			names := ClassNames{}
			if err := parseLiteral(raw, &names); err != nil {
				return Metadata{}, errors.Wrap(err, KeyNames)
			}
			m.Names = names
		} else {
			log.Warn().Msg("names not found in model metadata")
		}
	}

	// class count
	switch {
	case m.ClassCount == 0 && len(m.Names) > 0:
		m.ClassCount = len(m.Names)
	case m.ClassCount == 0:
		log.Warn().Msg("class count unresolved, it will be derived from the output shape")
	case len(m.Names) > 0 && m.ClassCount != len(m.Names):
		log.Warn().Int("class_count", m.ClassCount).Int("names", len(m.Names)).Msg("class count does not match names")
	}

	// task
	raw, ok, err = lookup.Lookup(KeyTask)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "lookup task")
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return Metadata{}, ErrMissingTask
	}
	m.Task = Task(strings.TrimSpace(raw))
	if !m.Task.Known() {
		log.Warn().Str("task", m.Task.String()).Msg("unrecognized task, decoding will fail")
	}

	// channels
	raw, ok, err = lookup.Lookup(KeyChannels)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "lookup channels")
	}
	if ok && base.Channels == 0 {
		if err := parseLiteral(raw, &m.Channels); err != nil {
			return Metadata{}, errors.Wrap(err, KeyChannels)
		}
	}
	if m.Channels == 0 {
		m.Channels = DefaultChannels
	}

	// kpt_shape
	raw, ok, err = lookup.Lookup(KeyKptShape)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "lookup kpt_shape")
	}
	if ok {
		var shape []int
		if err := parseLiteral(raw, &shape); err != nil {
			return Metadata{}, errors.Wrap(err, KeyKptShape)
		}
		if len(shape) != 2 || shape[0] <= 0 || (shape[1] != 2 && shape[1] != 3) {
			return Metadata{}, errors.Wrapf(ErrInvalidMetadata, "kpt_shape %v", shape)
		}
		m.KeypointShape = shape
	}

	for key, dst := range map[string]*string{
		KeyDescription: &m.Description,
		KeyAuthor:      &m.Author,
		KeyVersion:     &m.Version,
		KeyDate:        &m.Date,
	} {
		v, ok, err := lookup.Lookup(key)
		if err != nil {
			return Metadata{}, errors.Wrapf(err, "lookup %s", key)
		}
		if ok {
			*dst = v
		}
	}

	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}

	m.LogSummary()

	return m, nil
}

// LogSummary writes the resolved fields as a single log event.
func (m Metadata) LogSummary() {
	log.Info().
		Str("task", m.Task.String()).
		Int("width", m.InputSize.Width).
		Int("height", m.InputSize.Height).
		Int("stride", m.Stride).
		Int("channels", m.Channels).
		Int("class_count", m.ClassCount).
		Ints("kpt_shape", m.KeypointShape).
		Strs("names", m.labels()).
		Str("description", m.Description).
		Str("version", m.Version).
		Msg("model metadata resolved")
}

// labels returns the class names in index order.
func (m Metadata) labels() []string {
	out := make([]string, 0, len(m.Names))
	for _, idx := range m.Names.Indices() {
		out = append(out, m.Names[idx])
	}
	return out
}

// parseInputSize parses "[h, w]" or a single square dimension.
func parseInputSize(raw string) (images.Size, error) {
	var v any
	if err := parseLiteral(raw, &v); err != nil {
		return images.Size{}, errors.Wrap(err, KeyInputSize)
	}

	var dims []int
	switch t := v.(type) {
	case int:
		dims = []int{t, t}
	case []any:
		for _, d := range t {
			n, ok := d.(int)
			if !ok {
				return images.Size{}, errors.Wrapf(ErrInvalidMetadata, "imgsz %q", raw)
			}
			dims = append(dims, n)
		}
		if len(dims) == 1 {
			dims = append(dims, dims[0])
		}
	}

	if len(dims) != 2 || dims[0] <= 0 || dims[1] <= 0 {
		return images.Size{}, errors.Wrapf(ErrInvalidMetadata, "imgsz %q", raw)
	}
	return images.Size{Width: dims[1], Height: dims[0]}, nil
}

// parseLiteral decodes a metadata value. Exporters serialize values as Python
// literals, whose list and dict forms are valid YAML flow collections.
func parseLiteral(raw string, out any) error {
	if err := yaml.Unmarshal([]byte(raw), out); err != nil {
		return errors.Wrap(ErrInvalidMetadata, fmt.Sprintf("%q: %v", raw, err))
	}
	return nil
}
