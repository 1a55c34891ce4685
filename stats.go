package i7565

import "fmt"

type Stats struct {
	Commands       uint64 // commands written
	DeviceErrors   uint64 // "?n" replies
	ReplyFrames    uint64 // frame reports received as a command reply
	Dispatched     uint64 // extended frames handed to listeners
	Standard       uint64 // standard frames received and dropped
	Unknown        uint64 // unrecognized lines
	Malformed      uint64 // lines that failed to decode
	DroppedPending uint64 // reply frames replaced before a poll
	ListenerPanics uint64
}

func (st *Stats) String() string {
	return fmt.Sprintf("cmds: %d dev errors: %d reply frames: %d dispatched: %d std dropped: %d unknown: %d malformed: %d pending dropped: %d listener panics: %d",
		st.Commands, st.DeviceErrors, st.ReplyFrames, st.Dispatched, st.Standard, st.Unknown, st.Malformed, st.DroppedPending, st.ListenerPanics)
}
