// codecio inspects session snapshots, evaluates noise curves and checks
// image dimensions against decoder limits.
//
// Usage:
//
//	codecio inspect [--max-width N] [--max-height N] [--max-pixels N] <snapshot>
//	codecio noise --lut v0,...,v7 <x> [<x> ...]
//	codecio limits [--max-width N] [--max-height N] [--max-pixels N] <width> <height>
//	codecio demo [--workers N] [--preview htj2k] <output>
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-codecio/codecio"
)

var (
	logLevel  string
	maxWidth  uint32
	maxHeight uint32
	maxPixels uint64

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:           "codecio",
	Short:         "Inspect codec sessions and their parameters",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.Uint32Var(&maxWidth, "max-width", 1<<16, "largest accepted image width")
	pf.Uint32Var(&maxHeight, "max-height", 1<<16, "largest accepted image height")
	pf.Uint64Var(&maxPixels, "max-pixels", 1<<28, "largest accepted width*height")
}

// limitsFromFlags builds decoder limits from the persistent flags.
func limitsFromFlags() codecio.Limits {
	return codecio.Limits{MaxWidth: maxWidth, MaxHeight: maxHeight, MaxPixels: maxPixels}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "codecio:", err)
		os.Exit(1)
	}
}
