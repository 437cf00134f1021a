package aic

import "errors"

// Sentinel errors for SDK operations.
// These errors enable reliable error classification using errors.Is().

// Argument and parameter errors.
var (
	// ErrNullArgument indicates a nil buffer, model or handle was passed.
	ErrNullArgument = errors.New("null argument")

	// ErrParameterOutOfRange indicates a parameter value outside its documented range.
	ErrParameterOutOfRange = errors.New("parameter value out of range")

	// ErrParameterFixed indicates the parameter is read-only for this model type.
	ErrParameterFixed = errors.New("parameter is fixed for this model type")
)

// Processor state errors.
var (
	// ErrNotInitialized indicates Initialize has not completed on this processor,
	// or the operation went through a context whose processor has been closed.
	ErrNotInitialized = errors.New("processor not initialized")

	// ErrAudioConfigUnsupported indicates the sample rate, channel count or frame
	// count is outside the supported envelope.
	ErrAudioConfigUnsupported = errors.New("audio configuration not supported")

	// ErrAudioConfigMismatch indicates a process call whose buffer layout differs
	// from the configuration fixed at Initialize.
	ErrAudioConfigMismatch = errors.New("audio buffer does not match initialized configuration")

	// ErrProcessingNotAllowed indicates the authorization gate denied processing.
	ErrProcessingNotAllowed = errors.New("processing not allowed")

	// ErrInternal indicates an invariant violation inside the SDK. This is a
	// defect in the SDK, not caller misuse.
	ErrInternal = errors.New("internal error")
)

// License errors.
var (
	// ErrLicenseFormatInvalid indicates the license key is malformed or corrupted.
	ErrLicenseFormatInvalid = errors.New("license key format invalid")

	// ErrLicenseVersionUnsupported indicates the license targets an incompatible SDK version.
	ErrLicenseVersionUnsupported = errors.New("license version not supported")

	// ErrLicenseExpired indicates the license key has expired.
	ErrLicenseExpired = errors.New("license expired")
)

// Model errors.
var (
	// ErrModelInvalid indicates the model container is corrupted or not a model file.
	ErrModelInvalid = errors.New("model file invalid")

	// ErrModelVersionUnsupported indicates the model container version does not
	// match CompatibleModelVersion.
	ErrModelVersionUnsupported = errors.New("model version not supported")

	// ErrModelFilePathInvalid indicates the model path does not name a readable file.
	ErrModelFilePathInvalid = errors.New("model file path invalid")

	// ErrModelDataUnaligned indicates a model buffer whose start is not 64-byte aligned.
	ErrModelDataUnaligned = errors.New("model data not aligned to 64 bytes")

	// ErrFileSystem indicates the model file could not be read.
	ErrFileSystem = errors.New("filesystem error")
)
