package inference

import (
	"github.com/nvr-ai/go-yolo/models"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ReadMetadata copies the custom metadata map of an ONNX model.
//
// Arguments:
//   - modelPath: Path to the ONNX model file.
//
// Returns:
//   - models.MapLookup: Every custom key and its raw value.
//   - error: An error if the model cannot be read.
func ReadMetadata(modelPath string) (models.MapLookup, error) {
	meta, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading metadata of %s", modelPath)
	}
	defer meta.Destroy()

	keys, err := meta.GetCustomMetadataMapKeys()
	if err != nil {
		return nil, errors.Wrap(err, "error listing custom metadata keys")
	}

	out := make(models.MapLookup, len(keys))
	for _, key := range keys {
		value, ok, err := meta.LookupCustomMetadataMap(key)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading metadata key %s", key)
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}
