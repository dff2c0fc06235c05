package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-codecio/codecio"
	"github.com/mrjoshuak/go-codecio/snapshot"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot>",
	Short: "Print the contents of a session snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	c := codecio.New()
	c.Limits = limitsFromFlags()
	c.SetLogger(log)
	if err := snapshot.UnmarshalInto(c, data); err != nil {
		if codecio.IsResourceLimit(err) {
			return fmt.Errorf("%s exceeds limits: %w", path, err)
		}
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	m := &c.Metadata
	fmt.Fprintf(out, "File:        %s (%d bytes)\n", path, len(data))
	fmt.Fprintf(out, "Canvas:      %d x %d\n", c.Width(), c.Height())
	fmt.Fprintf(out, "Bit depth:   %d", m.BitDepth.BitsPerSample)
	if m.BitDepth.ExponentBitsPerSample != 0 {
		fmt.Fprintf(out, " (float, %d exponent bits)", m.BitDepth.ExponentBitsPerSample)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Color:       %s\n", m.ColorEncoding.Description())
	if m.IntensityTarget != 0 {
		fmt.Fprintf(out, "Intensity:   %g nits\n", m.IntensityTarget)
	}
	fmt.Fprintf(out, "Target:      %s\n", c.Target)

	if m.Noise.HasAny() {
		fmt.Fprintf(out, "Noise LUT:   %v\n", m.Noise.Lut)
	} else {
		fmt.Fprintln(out, "Noise:       none")
	}

	if c.Preview != nil {
		fmt.Fprintf(out, "Preview:     %d x %d\n", c.Preview.Header.Width, c.Preview.Header.Height)
	}
	if a := c.Animation; a != nil {
		fmt.Fprintf(out, "Animation:   %d frames, %d/%d ticks per second, loops %d\n",
			len(c.Frames), a.Header.TicksPerSecondNumerator, a.Header.TicksPerSecondDenominator, a.Header.NumLoops)
		for i, f := range a.Frames {
			b := c.Frames[i]
			fmt.Fprintf(out, "  frame %d: %d x %d at %v, %d ticks\n", i, b.Width(), b.Height(), b.Header.Origin, f.Duration)
		}
	}

	if c.Hints.Len() > 0 {
		fmt.Fprintln(out, "Hints:")
		for k, v := range c.Hints.All() {
			fmt.Fprintf(out, "  %s = %s\n", k, v)
		}
	}
	for _, blob := range []struct {
		name string
		data []byte
	}{{"Exif", c.Blobs.Exif}, {"IPTC", c.Blobs.IPTC}, {"JUMBF", c.Blobs.JUMBF}, {"XMP", c.Blobs.XMP}} {
		if len(blob.data) > 0 {
			fmt.Fprintf(out, "%-6s       %d bytes\n", blob.name+":", len(blob.data))
		}
	}
	fmt.Fprintf(out, "Pixels:      %d decoded\n", c.DecodedPixels())
	return nil
}
