package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "reset the converter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, err := initDriver(cmd)
		if err != nil {
			return err
		}
		defer drv.Close()
		return result(drv.Reset())
	},
}
