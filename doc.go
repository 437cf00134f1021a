// Package aic implements the ai-coustics real-time speech enhancement SDK.
//
// The SDK runs a neural enhancement model over live audio. A Model is the
// loaded model artifact; a Processor is one processing instance bound to a
// model and an audio configuration. The processor accepts interleaved,
// channel-sequential or planar float32 buffers of any host buffer size and
// internally regroups them into the model's native windows, reporting the
// resulting latency through its output delay.
//
// # Getting Started
//
// Load a model, create a processor with your license key and initialize it
// for the stream format:
//
//	model, err := aic.LoadModel("quail-l-16khz.aicmodel")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	processor, err := aic.NewProcessor(model, os.Getenv("AIC_SDK_LICENSE"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer processor.Close()
//
//	config := model.OptimalConfig()
//	config.NumChannels = 2
//	config.NumFrames = 480
//	if err := processor.Initialize(config); err != nil {
//	    log.Fatal(err)
//	}
//
//	// In the audio callback, enhance buffers in place:
//	if err := processor.ProcessInterleaved(buffer); err != nil {
//	    // handle without blocking the callback
//	}
//
// # Threading
//
// The Process and Reset methods are real-time safe: they never block,
// allocate or log. Everything else is control-plane work. Parameters are
// tuned through contexts, which stay safe to use even after the processor
// they came from is closed:
//
//	ctx := processor.Context()
//	ctx.SetParameter(aic.ParameterEnhancementLevel, 0.8)
//
//	vadCtx := processor.VadContext()
//	vadCtx.SetParameter(aic.VadParameterSpeechHoldDuration, 0.2)
//	speaking, _ := vadCtx.IsSpeechDetected()
//
// Parameter reads and writes are atomic per parameter and may run
// concurrently with audio processing from any thread.
package aic
