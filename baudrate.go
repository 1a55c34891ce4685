package i7565

import "fmt"

// CANBaudRate is the bus rate code stored by the converter. Setting it
// writes the converter EEPROM and triggers a reboot.
type CANBaudRate uint8

const (
	CB10k CANBaudRate = iota
	CB20k
	CB50k
	CB100k
	CB125k
	CB250k
	CB500k
	CB800k
	CB1000k
)

var baudRateKbit = [...]float64{10, 20, 50, 100, 125, 250, 500, 800, 1000}

func (b CANBaudRate) String() string {
	if int(b) >= len(baudRateKbit) {
		return fmt.Sprintf("CANBaudRate(%d)", uint8(b))
	}
	return fmt.Sprintf("%gkbit", baudRateKbit[b])
}

// Kbit returns the bus rate in kbit/s, 0 for unknown codes.
func (b CANBaudRate) Kbit() float64 {
	if int(b) >= len(baudRateKbit) {
		return 0
	}
	return baudRateKbit[b]
}

func ParseCANRate(kbit float64) (CANBaudRate, error) {
	switch kbit {
	case 10:
		return CB10k, nil
	case 20:
		return CB20k, nil
	case 50:
		return CB50k, nil
	case 100:
		return CB100k, nil
	case 125:
		return CB125k, nil
	case 250:
		return CB250k, nil
	case 500:
		return CB500k, nil
	case 800:
		return CB800k, nil
	case 1000:
		return CB1000k, nil
	default:
		return 0, fmt.Errorf("%w: unknown rate: %f", ErrInvalidArgument, kbit)
	}
}
