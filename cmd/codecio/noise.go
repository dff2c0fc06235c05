package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-codecio/noise"
)

var noiseLut []string

var noiseCmd = &cobra.Command{
	Use:   "noise <x> [<x> ...]",
	Short: "Evaluate a noise curve at intensities",
	Long: `Evaluate a noise curve at intensities.

For each x the control point index, the interpolation fraction and the
resulting strength are printed. The curve is also checked for 10-bit
quantization.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNoise,
}

func init() {
	noiseCmd.Flags().StringSliceVar(&noiseLut, "lut", nil, "the 8 control point values, comma separated")
	noiseCmd.MarkFlagRequired("lut")
	rootCmd.AddCommand(noiseCmd)
}

func runNoise(cmd *cobra.Command, args []string) error {
	if len(noiseLut) != noise.NumPoints {
		return fmt.Errorf("--lut needs %d values, got %d", noise.NumPoints, len(noiseLut))
	}
	var p noise.Params
	for i, s := range noiseLut {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fmt.Errorf("invalid control point %q: %w", s, err)
		}
		p.Lut[i] = float32(v)
	}

	out := cmd.OutOrStdout()
	if _, err := p.Quantize(); err != nil {
		log.WithError(err).Warn("curve cannot be stored")
	}
	if !p.HasAny() {
		fmt.Fprintln(out, "noise disabled (all control points near zero)")
	}

	for _, arg := range args {
		x, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return fmt.Errorf("invalid intensity %q: %w", arg, err)
		}
		i, f := noise.IndexAndFrac(float32(x))
		fmt.Fprintf(out, "x=%g index=%d frac=%g strength=%g\n", x, i, f, p.Strength(float32(x)))
	}
	return nil
}
