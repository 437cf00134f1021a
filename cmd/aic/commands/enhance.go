package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
	"github.com/spf13/cobra"
	resampling "github.com/tphakala/go-audio-resampling"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	aic "github.com/ai-coustics/aic-sdk-go"
	"github.com/ai-coustics/aic-sdk-go/internal/wavio"
)

var (
	enhanceModelPath string
	enhanceLicense   string
	enhanceLevel     float32
	enhanceGain      float32
	enhanceBypass    bool
	enhanceSettings  string
	enhanceResample  bool
	enhanceOutput    string
	enhanceOutDir    string
	enhanceFloat     bool
)

// settings mirrors the YAML tuning file accepted by --settings. Pointer
// fields distinguish "not set" from explicit zero values.
type settings struct {
	EnhancementLevel *float32 `yaml:"enhancement_level"`
	VoiceGain        *float32 `yaml:"voice_gain"`
	Bypass           *bool    `yaml:"bypass"`
	Vad              struct {
		Sensitivity           *float32 `yaml:"sensitivity"`
		SpeechHoldDuration    *float32 `yaml:"speech_hold_duration"`
		MinimumSpeechDuration *float32 `yaml:"minimum_speech_duration"`
	} `yaml:"vad"`
}

func loadSettings(path string) (*settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return &s, nil
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance <input>...",
	Short: "Enhance speech in audio files",
	Long: `Enhance speech in WAV or Ogg Opus files. Multiple inputs are
processed concurrently, each through its own processor. Output files are
written next to the inputs as <name>.enhanced.wav unless --output or
--out-dir says otherwise.

Audio is processed at its own sample rate by default. With --resample it is
first converted to the model's native rate, which gives the best quality.

Tuning comes from --settings (a YAML file) with individual flags taking
precedence:

  enhancement_level: 0.8
  voice_gain: 1.2
  vad:
    sensitivity: 8
    speech_hold_duration: 0.1

Example:
  aic enhance --model models/quail-l-16khz.aicmodel --level 0.9 call-*.wav`,
	Args: cobra.MinimumNArgs(1),
}

func outputPath(in string) string {
	if enhanceOutput != "" {
		return enhanceOutput
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".enhanced.wav"
	if enhanceOutDir != "" {
		return filepath.Join(enhanceOutDir, base)
	}
	return filepath.Join(filepath.Dir(in), base)
}

func enhanceFile(in, out string, model *aic.Model, key string, tuning *settings) error {
	audio, err := readAudio(in)
	if err != nil {
		return err
	}
	if enhanceResample {
		if audio, err = resampleAudio(audio, model.OptimalSampleRate()); err != nil {
			return err
		}
	}

	p, err := aic.NewProcessor(model, key)
	if err != nil {
		return err
	}
	defer p.Close()

	frames, err := model.OptimalNumFrames(audio.SampleRate)
	if err != nil {
		return err
	}
	if err := p.Initialize(aic.ProcessorConfig{
		SampleRate:  audio.SampleRate,
		NumChannels: audio.Channels,
		NumFrames:   frames,
	}); err != nil {
		return err
	}
	if err := applyTuning(p, tuning); err != nil {
		return err
	}

	delay, err := p.Context().OutputDelay()
	if err != nil {
		return err
	}

	// Pad the last chunk to a whole buffer, then push enough silence to
	// flush the processor's latency. After the loop the work buffer holds
	// the enhanced stream shifted by the delay.
	ch := int(audio.Channels)
	total := audio.Frames()
	padded := (total + frames - 1) / frames * frames
	flush := (delay + frames - 1) / frames * frames
	work := make([]float32, (padded+flush)*ch)
	copy(work, audio.Samples)

	chunk := frames * ch
	for pos := 0; pos < len(work); pos += chunk {
		if err := p.ProcessInterleaved(work[pos : pos+chunk]); err != nil {
			return err
		}
	}

	result := &wavio.File{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
		Samples:    work[delay*ch : (delay+total)*ch],
	}
	format := wavio.FormatPCM16
	if enhanceFloat {
		format = wavio.FormatFloat32
	}
	if err := result.Write(out, format); err != nil {
		return err
	}

	fmt.Printf("%s -> %s (%d frames at %d Hz, %d frames of delay trimmed)\n",
		in, out, total, audio.SampleRate, delay)
	return nil
}

// applyTuning applies the settings file first, then explicit flags on top.
func applyTuning(p *aic.Processor, tuning *settings) error {
	ctx := p.Context()
	vadCtx := p.VadContext()

	setParam := func(param aic.Parameter, value float32) error {
		if err := ctx.SetParameter(param, value); err != nil {
			return fmt.Errorf("set %s: %w", param, err)
		}
		return nil
	}
	setVad := func(param aic.VadParameter, value float32) error {
		if err := vadCtx.SetParameter(param, value); err != nil {
			return fmt.Errorf("set %s: %w", param, err)
		}
		return nil
	}

	if tuning != nil {
		if tuning.EnhancementLevel != nil {
			if err := setParam(aic.ParameterEnhancementLevel, *tuning.EnhancementLevel); err != nil {
				return err
			}
		}
		if tuning.VoiceGain != nil {
			if err := setParam(aic.ParameterVoiceGain, *tuning.VoiceGain); err != nil {
				return err
			}
		}
		if tuning.Bypass != nil {
			if err := setParam(aic.ParameterBypass, boolToFloat(*tuning.Bypass)); err != nil {
				return err
			}
		}
		if tuning.Vad.Sensitivity != nil {
			if err := setVad(aic.VadParameterSensitivity, *tuning.Vad.Sensitivity); err != nil {
				return err
			}
		}
		if tuning.Vad.SpeechHoldDuration != nil {
			if err := setVad(aic.VadParameterSpeechHoldDuration, *tuning.Vad.SpeechHoldDuration); err != nil {
				return err
			}
		}
		if tuning.Vad.MinimumSpeechDuration != nil {
			if err := setVad(aic.VadParameterMinimumSpeechDuration, *tuning.Vad.MinimumSpeechDuration); err != nil {
				return err
			}
		}
	}

	flags := enhanceCmd.Flags()
	if flags.Changed("level") {
		if err := setParam(aic.ParameterEnhancementLevel, enhanceLevel); err != nil {
			return err
		}
	}
	if flags.Changed("voice-gain") {
		if err := setParam(aic.ParameterVoiceGain, enhanceGain); err != nil {
			return err
		}
	}
	if flags.Changed("bypass") {
		if err := setParam(aic.ParameterBypass, boolToFloat(enhanceBypass)); err != nil {
			return err
		}
	}
	return nil
}

func boolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func readAudio(path string) (*wavio.File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ogg", ".opus":
		return decodeOgg(path)
	default:
		return wavio.Read(path)
	}
}

// decodeOgg decodes an Ogg Opus file into interleaved float32 samples. The
// decoder emits 20 ms of S16LE audio per packet at the bandwidth's rate.
func decodeOgg(path string) (*wavio.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ogg, _, err := oggreader.NewWith(f)
	if err != nil {
		return nil, fmt.Errorf("read ogg: %w", err)
	}

	decoder := opus.NewDecoder()
	frame := make([]byte, 1920*4)

	var (
		samples  []float32
		rate     uint32
		channels uint16 = 1
	)
	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ogg page: %w", err)
		}
		for _, segment := range segments {
			if bytes.HasPrefix(segment, []byte("OpusTags")) {
				continue
			}
			bandwidth, isStereo, err := decoder.Decode(segment, frame)
			if err != nil {
				return nil, fmt.Errorf("decode opus: %w", err)
			}
			rate = uint32(bandwidth.SampleRate())
			if isStereo {
				channels = 2
			}
			n := int(rate/50) * int(channels)
			for i := 0; i < n; i++ {
				s := int16(frame[i*2]) | int16(frame[i*2+1])<<8
				samples = append(samples, float32(s)/32768)
			}
		}
	}
	if rate == 0 {
		return nil, fmt.Errorf("no opus audio in %s", path)
	}
	return &wavio.File{SampleRate: rate, Channels: channels, Samples: samples}, nil
}

// resampleAudio converts the file to targetRate, each channel through its
// own streaming resampler.
func resampleAudio(f *wavio.File, targetRate uint32) (*wavio.File, error) {
	if f.SampleRate == targetRate {
		return f, nil
	}

	frames := f.Frames()
	ch := int(f.Channels)
	converted := make([][]float64, ch)
	outFrames := -1

	for c := 0; c < ch; c++ {
		mono := make([]float64, frames)
		for i := 0; i < frames; i++ {
			mono[i] = float64(f.Samples[i*ch+c])
		}

		r, err := resampling.New(&resampling.Config{
			InputRate:  float64(f.SampleRate),
			OutputRate: float64(targetRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("create resampler: %w", err)
		}
		out, err := r.Process(mono)
		if err != nil {
			return nil, fmt.Errorf("resample: %w", err)
		}
		tail, err := r.Flush()
		if err != nil {
			return nil, fmt.Errorf("resample flush: %w", err)
		}
		out = append(out, tail...)

		converted[c] = out
		if outFrames < 0 || len(out) < outFrames {
			outFrames = len(out)
		}
	}

	result := &wavio.File{
		SampleRate: targetRate,
		Channels:   f.Channels,
		Samples:    make([]float32, outFrames*ch),
	}
	for c := 0; c < ch; c++ {
		for i := 0; i < outFrames; i++ {
			result.Samples[i*ch+c] = float32(converted[c][i])
		}
	}
	return result, nil
}

func init() {
	// Assigned here rather than in the enhanceCmd literal: the handler
	// reaches enhanceCmd.Flags() through applyTuning, which would otherwise
	// be an initialization cycle.
	enhanceCmd.RunE = func(cmd *cobra.Command, args []string) error {
		key := enhanceLicense
		if key == "" {
			key = os.Getenv("AIC_SDK_LICENSE")
		}
		if key == "" {
			return fmt.Errorf("no license key: pass --license or set AIC_SDK_LICENSE")
		}
		if enhanceOutput != "" && len(args) != 1 {
			return fmt.Errorf("--output requires exactly one input file")
		}

		var tuning *settings
		if enhanceSettings != "" {
			var err error
			if tuning, err = loadSettings(enhanceSettings); err != nil {
				return err
			}
		}

		model, err := aic.LoadModel(enhanceModelPath)
		if err != nil {
			return err
		}
		defer model.Close()

		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for _, in := range args {
			g.Go(func() error {
				if err := enhanceFile(in, outputPath(in), model, key, tuning); err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				return nil
			})
		}
		return g.Wait()
	}

	enhanceCmd.Flags().StringVarP(&enhanceModelPath, "model", "m", "", "model container to enhance with (required)")
	enhanceCmd.Flags().StringVar(&enhanceLicense, "license", "", "license key (defaults to AIC_SDK_LICENSE)")
	enhanceCmd.Flags().Float32Var(&enhanceLevel, "level", 1, "enhancement level, 0 to 1")
	enhanceCmd.Flags().Float32Var(&enhanceGain, "voice-gain", 1, "voice gain, 0.1 to 4")
	enhanceCmd.Flags().BoolVar(&enhanceBypass, "bypass", false, "pass audio through unprocessed")
	enhanceCmd.Flags().StringVar(&enhanceSettings, "settings", "", "YAML file with enhancement and VAD parameters")
	enhanceCmd.Flags().BoolVar(&enhanceResample, "resample", false, "resample input to the model's native rate")
	enhanceCmd.Flags().StringVarP(&enhanceOutput, "output", "o", "", "output file (single input only)")
	enhanceCmd.Flags().StringVar(&enhanceOutDir, "out-dir", "", "directory for output files")
	enhanceCmd.Flags().BoolVar(&enhanceFloat, "float", false, "write 32-bit float WAV instead of 16-bit PCM")
	_ = enhanceCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(enhanceCmd)
}
