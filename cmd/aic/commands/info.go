package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ai-coustics/aic-sdk-go/internal/modelfile"
)

var infoCmd = &cobra.Command{
	Use:   "info <model-file>",
	Short: "Inspect a model container",
	Long: `Print the descriptor of a model container: identifier, engine,
native format and latency.

Example:
  aic info models/quail-l-16khz.aicmodel`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := modelfile.Load(args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Model ID:\t%s\n", desc.ID)
		fmt.Fprintf(w, "Container version:\t%d\n", desc.Version)
		fmt.Fprintf(w, "Engine:\t%s\n", engineName(desc.Engine))
		fmt.Fprintf(w, "Native sample rate:\t%d Hz\n", desc.NativeSampleRate)
		fmt.Fprintf(w, "Native window:\t%d frames (%.1f ms)\n",
			desc.NativeWindow, desc.WindowSeconds()*1000)
		fmt.Fprintf(w, "Intrinsic delay:\t%d frames (%.1f ms)\n",
			desc.IntrinsicDelay,
			float64(desc.IntrinsicDelay)/float64(desc.NativeSampleRate)*1000)
		fmt.Fprintf(w, "Enhancement level:\t%s\n", levelMode(desc.LevelFixed))
		fmt.Fprintf(w, "Weights:\t%d bytes\n", len(desc.Payload))
		return w.Flush()
	},
}

func engineName(kind uint8) string {
	switch kind {
	case 1:
		return "gate"
	case 2:
		return "identity"
	}
	return fmt.Sprintf("unknown (%d)", kind)
}

func levelMode(fixed bool) string {
	if fixed {
		return "fixed"
	}
	return "adjustable"
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
