package commands

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	aic "github.com/ai-coustics/aic-sdk-go"
)

var (
	benchModelPath string
	benchLicense   string
	benchInterval  time.Duration
	benchMax       int
)

type sessionReport struct {
	id      int
	maxExec time.Duration
	err     error
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure real-time processing headroom",
	Long: `Spawn enhancement sessions on a real-time cadence until one misses
its buffer deadline. Each session processes one buffer per period (the
buffer's duration at the model's native rate) and records its slowest
buffer.

Sessions are added at a fixed interval. The result is the number of
concurrent sessions this machine sustains without dropouts. If the session
cap is reached without a miss, the benchmark concludes shortly after.

Example:
  aic bench --model models/quail-l-16khz.aicmodel --interval 2s`,
	RunE: runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	key := benchLicense
	if key == "" {
		key = os.Getenv("AIC_SDK_LICENSE")
	}
	if key == "" {
		return fmt.Errorf("no license key: pass --license or set AIC_SDK_LICENSE")
	}

	model, err := aic.LoadModel(benchModelPath)
	if err != nil {
		return err
	}
	defer model.Close()

	cfg := model.OptimalConfig()
	period := time.Duration(float64(cfg.NumFrames) / float64(cfg.SampleRate) * float64(time.Second))

	fmt.Printf("SDK version: %s\n", aic.Version())
	fmt.Printf("Model: %s\n", model.ID())
	fmt.Printf("Sample rate: %d Hz\n", cfg.SampleRate)
	fmt.Printf("Frames per buffer: %d\n", cfg.NumFrames)
	fmt.Printf("Period: %.2f ms\n\n", period.Seconds()*1000)
	fmt.Printf("Spawning a session every %s until a deadline is missed...\n\n", benchInterval)

	stop := make(chan struct{})
	reports := make(chan sessionReport, benchMax)
	var wg sync.WaitGroup

	spawn := func(id int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports <- runSession(id, model, key, cfg, period, stop)
		}()
	}

	active := 1
	spawn(1)
	fmt.Println("Started session 1")

	ticker := time.NewTicker(benchInterval)
	defer ticker.Stop()

	finished := make([]sessionReport, 0, benchMax)
	var miss *sessionReport
	var capExpired <-chan time.Time

loop:
	for {
		select {
		case <-ticker.C:
			if active >= benchMax {
				if capExpired == nil {
					fmt.Printf("Session cap %d reached, watching for misses...\n", benchMax)
					capExpired = time.After(2 * benchInterval)
				}
				continue
			}
			active++
			spawn(active)
			fmt.Printf("Started session %d\n", active)

		case report := <-reports:
			finished = append(finished, report)
			if report.err != nil {
				miss = &finished[len(finished)-1]
				break loop
			}

		case <-capExpired:
			break loop
		}
	}

	close(stop)
	go func() {
		wg.Wait()
		close(reports)
	}()
	for report := range reports {
		finished = append(finished, report)
	}

	fmt.Println("\nBenchmark complete")
	maxOK := active
	if miss != nil {
		fmt.Printf("Missed deadline in session %d (%v)\n", miss.id, miss.err)
		maxOK = active - 1
	} else {
		fmt.Printf("No deadline missed with %d concurrent sessions\n", active)
	}
	fmt.Printf("Max concurrent sessions without missed deadlines: %d\n\n", maxOK)

	sort.Slice(finished, func(i, j int) bool { return finished[i].id < finished[j].id })
	fmt.Println("Session report (max processing time per buffer):")
	periodMs := period.Seconds() * 1000
	for _, r := range finished {
		maxMs := r.maxExec.Seconds() * 1000
		note := ""
		if r.err != nil {
			note = fmt.Sprintf(" (missed: %v)", r.err)
		}
		fmt.Printf("Session %3d: max %7.3f ms (%6.2f%% of period)%s\n",
			r.id, maxMs, maxMs/periodMs*100, note)
	}
	return nil
}

// runSession processes one silent buffer per period until stopped, a
// processing error occurs, or a buffer overruns its deadline.
func runSession(id int, model *aic.Model, key string, cfg aic.ProcessorConfig, period time.Duration, stop <-chan struct{}) sessionReport {
	report := sessionReport{id: id}

	p, err := aic.NewProcessor(model, key)
	if err != nil {
		report.err = fmt.Errorf("create processor: %w", err)
		return report
	}
	defer p.Close()
	if err := p.Initialize(cfg); err != nil {
		report.err = fmt.Errorf("initialize: %w", err)
		return report
	}

	buf := make([]float32, int(cfg.NumChannels)*cfg.NumFrames)
	for {
		select {
		case <-stop:
			return report
		default:
		}

		start := time.Now()
		deadline := start.Add(period)
		if err := p.ProcessInterleaved(buf); err != nil {
			report.err = fmt.Errorf("process: %w", err)
			return report
		}
		end := time.Now()

		if exec := end.Sub(start); exec > report.maxExec {
			report.maxExec = exec
		}
		if end.After(deadline) {
			report.err = fmt.Errorf("late by %s", end.Sub(deadline))
			return report
		}
		time.Sleep(time.Until(deadline))
	}
}

func init() {
	benchCmd.Flags().StringVarP(&benchModelPath, "model", "m", "", "model container to benchmark (required)")
	benchCmd.Flags().StringVar(&benchLicense, "license", "", "license key (defaults to AIC_SDK_LICENSE)")
	benchCmd.Flags().DurationVar(&benchInterval, "interval", 5*time.Second, "time between new sessions")
	benchCmd.Flags().IntVar(&benchMax, "max-sessions", 64, "stop adding sessions at this count")
	_ = benchCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(benchCmd)
}
