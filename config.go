package i7565

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"time"
)

const (
	DefaultPort             = "/dev/ttyUSB0"
	DefaultPortBaudrate     = 921600
	DefaultMaxFramesPerPoll = 10
)

type Config struct {
	Debug            bool
	Port             string
	PortBaudrate     int
	ReplyTimeout     time.Duration // wait for a command reply, also the first read of a poll
	PollTimeout      time.Duration // wait for each further line of a poll burst
	MaxFramesPerPoll int
	OnMessage        func(string)
	OnError          func(error)
	// OnEvent, when set, receives events instead of OnMessage.
	OnEvent          func(Event)
}

func (cfg *Config) setDefaults() {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.PortBaudrate == 0 {
		cfg.PortBaudrate = DefaultPortBaudrate
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.MaxFramesPerPoll <= 0 {
		cfg.MaxFramesPerPoll = DefaultMaxFramesPerPoll
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) {
			_, file, no, ok := runtime.Caller(2)
			if ok {
				fmt.Printf("%s#%d %v\n", filepath.Base(file), no, msg)
			} else {
				log.Println(msg)
			}
		}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			log.Printf("error: %v", err)
		}
	}
}
