package aic

import "github.com/ai-coustics/aic-sdk-go/internal/modelfile"

const (
	sdkVersion = "1.0.2"

	// sdkGeneration is the major SDK generation license keys are checked
	// against.
	sdkGeneration uint32 = 1
)

// Version returns the SDK version string.
func Version() string {
	return sdkVersion
}

// CompatibleModelVersion returns the model container version this SDK build
// loads. The downloader resolves model artifacts through it.
func CompatibleModelVersion() uint32 {
	return modelfile.SupportedVersion
}
