package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/roffe/i7565"
	"github.com/spf13/cobra"
)

const (
	flagExtended = "extended"
	flagRemote   = "remote"
	flagDLC      = "dlc"
)

func init() {
	rootCmd.AddCommand(sendCmd)
	f := sendCmd.Flags()
	f.BoolP(flagExtended, "e", false, "29 bit identifier")
	f.BoolP(flagRemote, "r", false, "remote frame")
	f.Uint8(flagDLC, 0, "requested length for remote frames")
}

var sendCmd = &cobra.Command{
	Use:   "send <id> [hex data]",
	Short: "send a CAN frame",
	Example: `  i7565tool send 7E0 021003
  i7565tool send -e 18DAF110 0210
  i7565tool send -e -r --dlc 8 18DAF110`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := frameFromArgs(cmd, args)
		if err != nil {
			return err
		}
		drv, err := initDriver(cmd)
		if err != nil {
			return err
		}
		defer drv.Close()

		if err := result(drv.Send(frame)); err != nil {
			return err
		}
		log.Println("sent", frame.String())

		// a frame report may have arrived as the reply
		drv.AddExtendedFrameListener(i7565.ExtendedFrameListenerFunc(func(id uint32, data []byte) {
			fmt.Println(i7565.NewExtendedFrame(id, data).ColorString())
		}))
		_, err = drv.Poll()
		return err
	},
}

func frameFromArgs(cmd *cobra.Command, args []string) (*i7565.CANFrame, error) {
	f := cmd.Flags()
	extended, _ := f.GetBool(flagExtended)
	remote, _ := f.GetBool(flagRemote)
	dlc, _ := f.GetUint8(flagDLC)

	id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(args[0]), "0x"), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid identifier %q: %w", args[0], err)
	}
	var frame *i7565.CANFrame
	switch {
	case remote:
		if len(args) > 1 {
			return nil, errors.New("remote frames carry no data")
		}
		frame = i7565.NewRemoteFrame(uint32(id), dlc, extended)
	default:
		var data []byte
		if len(args) > 1 {
			data, err = hex.DecodeString(strings.ReplaceAll(args[1], " ", ""))
			if err != nil {
				return nil, fmt.Errorf("invalid data %q: %w", args[1], err)
			}
		}
		if extended {
			frame = i7565.NewExtendedFrame(uint32(id), data)
		} else {
			frame = i7565.NewFrame(uint32(id), data)
		}
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return frame, nil
}
