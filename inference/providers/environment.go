package providers

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// GetSharedLibPath returns the default path to the shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library.
func GetSharedLibPath() string {
	if path := os.Getenv("ONNXRUNTIME_LIB"); path != "" {
		return path
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	}
	if runtime.GOARCH == "arm64" {
		return "./third_party/onnxruntime_arm64.so"
	}
	return "./third_party/onnxruntime.so"
}

// Initialize loads the ONNX Runtime shared library and prepares the process
// wide environment. Calling it again after a successful initialization is a
// no-op.
//
// Arguments:
//   - libraryPath: The shared library, GetSharedLibPath() when empty.
//
// Returns:
//   - error: An error if the library is missing or fails to initialize.
func Initialize(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libraryPath == "" {
		libraryPath = GetSharedLibPath()
	}
	if _, err := os.Stat(libraryPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libraryPath)
	}

	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}

	log.Debug().Str("library", libraryPath).Str("version", ort.GetVersion()).Msg("onnxruntime initialized")
	return nil
}

// Shutdown releases the process wide environment.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return errors.Wrap(ort.DestroyEnvironment(), "error destroying ORT environment")
}
