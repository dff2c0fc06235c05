package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-codecio/codecio"
	"github.com/mrjoshuak/go-codecio/noise"
	"github.com/mrjoshuak/go-codecio/snapshot"
)

var (
	demoWorkers int
	demoFrames  int
	demoWidth   int
	demoHeight  int
	demoPreview string
	demoLinear  bool
)

var demoCmd = &cobra.Command{
	Use:   "demo <output>",
	Short: "Write a synthetic session snapshot",
	Long: `Write a synthetic session snapshot.

The session holds a gradient in sRGB, an optional preview and animation,
a fitted noise curve and a color_space hint. With --linear every bundle is
converted to linear sRGB on a worker pool before writing.`,
	Args: cobra.ExactArgs(1),
	RunE: runDemo,
}

func init() {
	f := demoCmd.Flags()
	f.IntVar(&demoWorkers, "workers", 0, "worker goroutines for color conversion (0 = GOMAXPROCS)")
	f.IntVar(&demoFrames, "frames", 1, "number of frames; more than 1 makes an animation")
	f.IntVar(&demoWidth, "width", 64, "frame width")
	f.IntVar(&demoHeight, "height", 48, "frame height")
	f.StringVar(&demoPreview, "preview", "", "add a preview stored as float or htj2k")
	f.BoolVar(&demoLinear, "linear", false, "convert to linear sRGB before writing")
	rootCmd.AddCommand(demoCmd)
}

func gradientImage(width, height int, phase float32) *codecio.Image3F {
	im := codecio.NewImage3F(width, height)
	for c := 0; c < 3; c++ {
		for y := 0; y < height; y++ {
			row := im.Row(c, y)
			for x := range row {
				v := (float32(x)/float32(width) + float32(y)/float32(height) + phase + float32(c)*0.1) / 2.5
				row[x] = min(v, 1)
			}
		}
	}
	return im
}

func buildDemoSession() (*codecio.InOut, snapshot.Options, error) {
	opts := snapshot.DefaultOptions()
	if demoFrames < 1 {
		return nil, opts, fmt.Errorf("--frames must be at least 1")
	}
	if err := limitsFromFlags().Verify(uint32(demoWidth), uint32(demoHeight)); err != nil {
		return nil, opts, err
	}

	c := codecio.New()
	c.Limits = limitsFromFlags()
	c.SetLogger(log)
	c.Metadata.BitDepth.BitsPerSample = 8
	c.Metadata.ColorEncoding = codecio.SRGB(false)
	c.Metadata.Orientation = 1
	c.Metadata.Noise = noise.Fit([]noise.Level{
		{Intensity: 0.1, NoiseLevel: 0.02},
		{Intensity: 0.5, NoiseLevel: 0.05},
		{Intensity: 0.9, NoiseLevel: 0.03},
	})
	c.Hints.Add(codecio.HintColorSpace, codecio.SRGB(false).Description())

	switch demoPreview {
	case "":
	case "float", "htj2k":
		pw, ph := max(1, demoWidth/4), max(1, demoHeight/4)
		c.SetPreview(codecio.PreviewHeader{Width: uint32(pw), Height: uint32(ph)}).
			SetFromImage(gradientImage(pw, ph, 0), codecio.SRGB(false))
		if demoPreview == "htj2k" {
			opts.PreviewCodec = snapshot.PreviewHTJ2K
		}
	default:
		return nil, opts, fmt.Errorf("unknown preview codec %q", demoPreview)
	}

	if demoFrames == 1 {
		c.SetFromImage(gradientImage(demoWidth, demoHeight, 0), codecio.SRGB(false))
	} else {
		c.SetAnimation(codecio.AnimationHeader{TicksPerSecondNumerator: 100, TicksPerSecondDenominator: 1})
		for i := 0; i < demoFrames; i++ {
			b := c.AddFrame(codecio.AnimationFrame{Duration: 10})
			b.SetFromImage(gradientImage(demoWidth, demoHeight, float32(i)/float32(demoFrames)), codecio.SRGB(false))
			b.Header.IsLast = i == demoFrames-1
		}
	}
	c.AddDecodedPixels(uint64(demoWidth*demoHeight) * uint64(demoFrames))

	if demoLinear {
		cfg := codecio.DefaultPoolConfig()
		cfg.NumWorkers = demoWorkers
		pool := codecio.NewWorkerPool(cfg)
		defer pool.Close()
		linear := codecio.LinearSRGB(false)
		if err := c.TransformTo(linear, pool); err != nil {
			return nil, opts, err
		}
		c.Metadata.ColorEncoding = linear
	}
	return c, opts, nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	c, opts, err := buildDemoSession()
	if err != nil {
		return err
	}
	data, err := snapshot.Marshal(c, opts)
	if err != nil {
		return err
	}
	if err := c.SetEncoderOutput(uint64(len(data)), 32); err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", args[0], err)
	}
	log.WithFields(logrus.Fields{"path": args[0], "bytes": c.EncodedSize(), "frames": len(c.Frames)}).Info("snapshot written")
	return nil
}
