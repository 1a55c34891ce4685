package i7565

import "fmt"

type ExtendedFrameListener interface {
	OnExtendedFrameReceived(fromID uint32, data []byte)
}

type StandardFrameListener interface {
	OnStandardFrameReceived(fromID uint32, data []byte)
}

type extendedFunc struct {
	fn func(uint32, []byte)
}

func (e *extendedFunc) OnExtendedFrameReceived(fromID uint32, data []byte) {
	e.fn(fromID, data)
}

// ExtendedFrameListenerFunc wraps fn in a handle that can later be passed to
// RemoveExtendedFrameListener.
func ExtendedFrameListenerFunc(fn func(fromID uint32, data []byte)) ExtendedFrameListener {
	return &extendedFunc{fn: fn}
}

type standardFunc struct {
	fn func(uint32, []byte)
}

func (s *standardFunc) OnStandardFrameReceived(fromID uint32, data []byte) {
	s.fn(fromID, data)
}

func StandardFrameListenerFunc(fn func(fromID uint32, data []byte)) StandardFrameListener {
	return &standardFunc{fn: fn}
}

// Dispatcher keeps listeners per frame class and notifies them synchronously
// in registration order.
type Dispatcher struct {
	extended []ExtendedFrameListener
	standard []StandardFrameListener

	// OnPanic receives a recovered listener panic wrapped in ErrListenerPanic.
	OnPanic func(error)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) AddExtendedFrameListener(l ExtendedFrameListener) {
	if l == nil {
		return
	}
	d.extended = append(d.extended, l)
}

// RemoveExtendedFrameListener drops every registration of l. The slice is
// rebuilt so a Notify already ranging over the old one is not disturbed.
func (d *Dispatcher) RemoveExtendedFrameListener(l ExtendedFrameListener) {
	kept := d.extended[:0:0]
	for _, e := range d.extended {
		if e != l {
			kept = append(kept, e)
		}
	}
	d.extended = kept
}

func (d *Dispatcher) AddStandardFrameListener(l StandardFrameListener) {
	if l == nil {
		return
	}
	d.standard = append(d.standard, l)
}

func (d *Dispatcher) RemoveStandardFrameListener(l StandardFrameListener) {
	kept := d.standard[:0:0]
	for _, s := range d.standard {
		if s != l {
			kept = append(kept, s)
		}
	}
	d.standard = kept
}

func (d *Dispatcher) ExtendedListeners() int {
	return len(d.extended)
}

func (d *Dispatcher) StandardListeners() int {
	return len(d.standard)
}

// NotifyExtended returns the number of listeners that panicked.
func (d *Dispatcher) NotifyExtended(fromID uint32, data []byte) int {
	failed := 0
	for _, l := range d.extended {
		if !d.call(fromID, func() { l.OnExtendedFrameReceived(fromID, data) }) {
			failed++
		}
	}
	return failed
}

func (d *Dispatcher) NotifyStandard(fromID uint32, data []byte) int {
	failed := 0
	for _, l := range d.standard {
		if !d.call(fromID, func() { l.OnStandardFrameReceived(fromID, data) }) {
			failed++
		}
	}
	return failed
}

func (d *Dispatcher) call(fromID uint32, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if d.OnPanic != nil {
				d.OnPanic(fmt.Errorf("%w: frame 0x%X: %v", ErrListenerPanic, fromID, r))
			}
		}
	}()
	fn()
	return true
}
