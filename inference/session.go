package inference

import (
	"context"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Session is a Runner backed by an ONNX Runtime session. Output tensors are
// allocated by the runtime on every call, so dynamic input sizes are supported.
type Session struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputNames []string
}

// NewSession opens modelPath with the execution provider in config. The
// runtime environment must already be initialized.
//
// Arguments:
//   - modelPath: Path to the ONNX model file.
//   - config: The provider configuration.
//
// Returns:
//   - *Session: The session.
//   - error: An error if the model cannot be opened.
func NewSession(modelPath string, config providers.Config) (*Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading inputs and outputs of %s", modelPath)
	}
	if len(inputs) != 1 {
		return nil, errors.Errorf("expected a single model input, got %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, errors.New("model declares no outputs")
	}

	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		outputNames[i] = o.Name
	}

	options, err := providers.NewSessionOptions(config)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{inputs[0].Name}, outputNames, options)
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Session{
		session:     session,
		inputName:   inputs[0].Name,
		outputNames: outputNames,
	}, nil
}

// Run executes the model on input.
//
// Arguments:
//   - ctx: Checked before the call, the runtime call itself cannot be interrupted.
//   - input: The planar input tensor.
//
// Returns:
//   - []postprocess.Tensor: Copies of the output tensors.
//   - error: An error if the call fails or an output is not float32.
func (s *Session) Run(ctx context.Context, input postprocess.Tensor) ([]postprocess.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	defer in.Destroy()

	values := make([]ort.Value, len(s.outputNames))
	if err := s.session.Run([]ort.Value{in}, values); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}
	defer func() {
		for _, v := range values {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	out := make([]postprocess.Tensor, len(values))
	for i, v := range values {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, errors.Errorf("output %s is not a float32 tensor", s.outputNames[i])
		}
		out[i] = postprocess.Tensor{
			Shape: append([]int64(nil), t.GetShape()...),
			Data:  append([]float32(nil), t.GetData()...),
		}
	}
	return out, nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return errors.Wrap(err, "error destroying ORT session")
}
