package aic

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ai-coustics/aic-sdk-go/download"
	"github.com/ai-coustics/aic-sdk-go/internal/modelfile"
	"github.com/ai-coustics/aic-sdk-go/limits"
)

// Model is a loaded enhancement model. One model can back any number of
// processors; its resources are released once the model and every processor
// created from it have been closed.
type Model struct {
	desc     *modelfile.Descriptor
	instance string

	// refs counts the creator handle plus one per live processor.
	refs   atomic.Int32
	closed atomic.Bool
}

func newModel(desc *modelfile.Descriptor) *Model {
	m := &Model{desc: desc, instance: uuid.New().String()}
	m.refs.Store(1)
	return m
}

// wrapModelError maps container errors onto the SDK error taxonomy.
func wrapModelError(err error) error {
	switch {
	case errors.Is(err, modelfile.ErrUnaligned):
		return fmt.Errorf("%w: %s", ErrModelDataUnaligned, err)
	case errors.Is(err, modelfile.ErrVersion):
		return fmt.Errorf("%w: %s", ErrModelVersionUnsupported, err)
	default:
		return fmt.Errorf("%w: %s", ErrModelInvalid, err)
	}
}

// LoadModel reads a model container from disk.
func LoadModel(path string) (*Model, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrModelFilePathInvalid)
	}

	desc, err := modelfile.Load(path)
	if err != nil {
		var mapped error
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, os.ErrNotExist):
			mapped = fmt.Errorf("%w: %s", ErrModelFilePathInvalid, path)
		case errors.As(err, &pathErr):
			mapped = fmt.Errorf("%w: %s", ErrFileSystem, err)
		default:
			mapped = wrapModelError(err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "LoadModel",
			"path":     path,
			"error":    mapped.Error(),
		}).Error("Model load failed")
		return nil, mapped
	}

	m := newModel(desc)
	logrus.WithFields(logrus.Fields{
		"function":    "LoadModel",
		"model_id":    desc.ID,
		"instance":    m.instance,
		"sample_rate": desc.NativeSampleRate,
		"window":      desc.NativeWindow,
	}).Info("Model loaded from file")
	return m, nil
}

// LoadModelFromBuffer parses a model container held in memory. The buffer
// must start on a 64-byte boundary and must stay alive and unmodified for
// the lifetime of the model; the weights are referenced in place, not
// copied.
func LoadModelFromBuffer(buf []byte) (*Model, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: model buffer", ErrNullArgument)
	}

	desc, err := modelfile.Parse(buf)
	if err != nil {
		mapped := wrapModelError(err)
		logrus.WithFields(logrus.Fields{
			"function": "LoadModelFromBuffer",
			"size":     len(buf),
			"error":    mapped.Error(),
		}).Error("Model parse failed")
		return nil, mapped
	}

	m := newModel(desc)
	logrus.WithFields(logrus.Fields{
		"function": "LoadModelFromBuffer",
		"model_id": desc.ID,
		"instance": m.instance,
	}).Info("Model loaded from buffer")
	return m, nil
}

// ID returns the model identifier, for example "quail-l-16khz".
func (m *Model) ID() string {
	return m.desc.ID
}

// OptimalSampleRate returns the sample rate the model was trained at.
// Initializing a processor at this rate avoids any quality loss from
// window scaling.
func (m *Model) OptimalSampleRate() uint32 {
	return m.desc.NativeSampleRate
}

// OptimalNumFrames returns the frame count per process call that avoids all
// alignment buffering at the given sample rate.
func (m *Model) OptimalNumFrames(sampleRate uint32) (int, error) {
	if err := limits.ValidateSampleRate(sampleRate); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrAudioConfigUnsupported, err)
	}
	return m.desc.WindowAt(sampleRate), nil
}

// OptimalConfig returns the lowest-latency mono configuration for this
// model. Adjust NumChannels and NumFrames to the host stream before calling
// Processor.Initialize.
func (m *Model) OptimalConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate:  m.desc.NativeSampleRate,
		NumChannels: 1,
		NumFrames:   int(m.desc.NativeWindow),
	}
}

// Close releases the caller's handle on the model. Processors created from
// it keep the model alive until they are closed themselves. Close is
// idempotent.
func (m *Model) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"function": "Model.Close",
		"model_id": m.desc.ID,
		"instance": m.instance,
	}).Info("Model handle closed")
	m.release()
	return nil
}

// retain takes a reference for a new processor.
func (m *Model) retain() error {
	if m.closed.Load() {
		return fmt.Errorf("%w: model is closed", ErrModelInvalid)
	}
	for {
		r := m.refs.Load()
		if r <= 0 {
			return fmt.Errorf("%w: model released", ErrModelInvalid)
		}
		if m.refs.CompareAndSwap(r, r+1) {
			return nil
		}
	}
}

func (m *Model) release() {
	if m.refs.Add(-1) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Model.release",
			"model_id": m.desc.ID,
			"instance": m.instance,
		}).Debug("Model resources released")
	}
}

// DownloadModel fetches the named model at the container version this SDK
// supports and stores it in dir. It returns the path of the model file.
// Files already present with a matching checksum are not downloaded again.
func DownloadModel(modelID, dir string) (string, error) {
	return download.Download(modelID, CompatibleModelVersion(), dir)
}
