package cmd

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/roffe/i7565"
	"github.com/roffe/i7565/pkg/serialline"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "i7565tool",
	Short:        "i-7565 CAN converter tool",
	Long:         `Send and receive CAN frames through an i-7565 USB CAN converter`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagPort         = "port"
	flagBaudrate     = "baudrate"
	flagDebug        = "debug"
	flagReplyTimeout = "reply-timeout"
	flagPollTimeout  = "poll-timeout"
	flagMaxFrames    = "max-frames"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", i7565.DefaultPort, "com-port")
	pf.IntP(flagBaudrate, "b", i7565.DefaultPortBaudrate, "baudrate")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.Duration(flagReplyTimeout, i7565.DefaultReplyTimeout, "command reply timeout")
	pf.Duration(flagPollTimeout, i7565.DefaultPollTimeout, "timeout for each line of a poll burst")
	pf.Int(flagMaxFrames, i7565.DefaultMaxFramesPerPoll, "max frames handled per poll")
}

func configFromFlags(cmd *cobra.Command) (*i7565.Config, error) {
	pf := cmd.Flags()
	port, err := pf.GetString(flagPort)
	if err != nil {
		return nil, err
	}
	baudrate, err := pf.GetInt(flagBaudrate)
	if err != nil {
		return nil, err
	}
	debug, err := pf.GetBool(flagDebug)
	if err != nil {
		return nil, err
	}
	replyTimeout, err := pf.GetDuration(flagReplyTimeout)
	if err != nil {
		return nil, err
	}
	pollTimeout, err := pf.GetDuration(flagPollTimeout)
	if err != nil {
		return nil, err
	}
	maxFrames, err := pf.GetInt(flagMaxFrames)
	if err != nil {
		return nil, err
	}
	return &i7565.Config{
		Debug:            debug,
		Port:             port,
		PortBaudrate:     baudrate,
		ReplyTimeout:     replyTimeout,
		PollTimeout:      pollTimeout,
		MaxFramesPerPoll: maxFrames,
		OnMessage: func(msg string) {
			log.Println(msg)
		},
		OnError: func(err error) {
			log.Println(err)
		},
	}, nil
}

func initDriver(cmd *cobra.Command) (*i7565.Driver, error) {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	port, err := serialline.Open(cfg.Port, serialline.Opts{Baudrate: cfg.PortBaudrate})
	if err != nil {
		return nil, err
	}
	drv, err := i7565.New(port, cfg)
	if err != nil {
		port.Close()
		return nil, err
	}
	return drv, nil
}

// result turns a device error code into an error for the command line.
func result(code i7565.ErrorCode, err error) error {
	if err != nil {
		return err
	}
	return code.Err()
}

func pollInterval(cmd *cobra.Command) time.Duration {
	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil || interval <= 0 {
		return 5 * time.Millisecond
	}
	return interval
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
