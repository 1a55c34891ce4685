package cmd

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/roffe/i7565"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(canrateCmd)
	canrateCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

var canrateCmd = &cobra.Command{
	Use:   "canrate <kbit>",
	Short: "store a new CAN bus rate in the converter",
	Long: `Store a new CAN bus rate in the converter EEPROM.
The converter reboots and comes back at the new rate.
Valid rates: 10, 20, 50, 100, 125, 250, 500, 800, 1000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kbit, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		rate, err := i7565.ParseCANRate(kbit)
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !ask(fmt.Sprintf("Write %s to converter and reboot it", rate)) {
			return errors.New("aborted")
		}

		drv, err := initDriver(cmd)
		if err != nil {
			return err
		}
		defer drv.Close()
		if err := result(drv.SetCANBaudRate(rate)); err != nil {
			return err
		}
		log.Printf("CAN rate set to %s", rate)
		return nil
	},
}

func ask(label string) bool {
	prompt := promptui.Select{
		Label:    label + " [Yes/No]",
		HideHelp: true,
		Items:    []string{"Yes", "No"},
	}
	_, result, err := prompt.Run()
	if err != nil {
		log.Printf("prompt failed %v", err)
		return false
	}
	return result == "Yes"
}
