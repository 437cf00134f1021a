package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	aic "github.com/ai-coustics/aic-sdk-go"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "aic",
	Short: "Tools for the ai-coustics speech enhancement SDK",
	Long: `aic - command line tools for the ai-coustics speech enhancement SDK.

Models are distributed as .aicmodel containers. Download one, inspect it,
then enhance recorded audio or measure how many real-time sessions your
machine sustains.

A license key is required for enhancement. Pass it with --license or set
the AIC_SDK_LICENSE environment variable.

Examples:
  aic download quail-l-16khz --dir models
  aic info models/quail-l-16khz.aicmodel
  aic enhance --model models/quail-l-16khz.aicmodel noisy.wav
  aic bench --model models/quail-l-16khz.aicmodel`,
	Version:       aic.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
