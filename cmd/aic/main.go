// Package main provides the aic command line tool.
//
// Usage:
//
//	aic <command> [flags]
//
// Commands:
//
//	info     - Inspect a model container
//	download - Fetch a model from the distribution service
//	enhance  - Enhance speech in audio files
//	bench    - Measure real-time processing headroom
package main

import (
	"fmt"
	"os"

	"github.com/ai-coustics/aic-sdk-go/cmd/aic/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
