package cmd

import (
	"fmt"

	"github.com/roffe/i7565/pkg/serialline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "list available com ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialline.ListPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(serialline.PortInfo(p))
		}
		return nil
	},
}
