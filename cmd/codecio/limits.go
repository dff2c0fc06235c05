package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var limitsCmd = &cobra.Command{
	Use:   "limits <width> <height>",
	Short: "Check image dimensions against decoder limits",
	Args:  cobra.ExactArgs(2),
	RunE:  runLimits,
}

func init() {
	rootCmd.AddCommand(limitsCmd)
}

func runLimits(cmd *cobra.Command, args []string) error {
	var dims [2]uint32
	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid dimension %q: %w", arg, err)
		}
		dims[i] = uint32(v)
	}
	if err := limitsFromFlags().Verify(dims[0], dims[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d x %d accepted (%d pixels)\n", dims[0], dims[1], uint64(dims[0])*uint64(dims[1]))
	return nil
}
