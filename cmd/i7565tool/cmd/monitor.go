package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/roffe/i7565"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Duration("interval", 5*time.Millisecond, "poll interval")
	monitorCmd.Flags().Bool("nocolor", false, "plain output")
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "print received extended frames",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, err := initDriver(cmd)
		if err != nil {
			return err
		}
		defer drv.Close()

		nocolor, _ := cmd.Flags().GetBool("nocolor")
		drv.AddExtendedFrameListener(i7565.ExtendedFrameListenerFunc(func(id uint32, data []byte) {
			f := i7565.NewExtendedFrame(id, data)
			if nocolor {
				fmt.Println(f.String())
				return
			}
			fmt.Println(f.ColorString())
		}))

		start := time.Now()
		err = drv.PollLoop(cmd.Context(), pollInterval(cmd))
		st := drv.Stats()
		log.Printf("monitored for %s, %s", time.Since(start).Round(time.Millisecond), st.String())
		return ignoreCanceled(err)
	},
}
