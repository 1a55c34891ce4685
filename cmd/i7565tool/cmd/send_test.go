package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/roffe/i7565"
)

func TestFrameFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		flags    map[string]string
		args     []string
		wantKind i7565.FrameKind
		wantID   uint32
		wantData []byte
		wantDLC  uint8
	}{
		{"standard", nil, []string{"7E0", "021003"}, i7565.StandardData, 0x7E0, []byte{2, 0x10, 3}, 3},
		{"standard no data", nil, []string{"0x123"}, i7565.StandardData, 0x123, nil, 0},
		{"extended", map[string]string{flagExtended: "true"}, []string{"1ABCDE", "0A FF"}, i7565.ExtendedData, 0x1ABCDE, []byte{0x0A, 0xFF}, 2},
		{"extended remote", map[string]string{flagExtended: "true", flagRemote: "true", flagDLC: "8"}, []string{"18DAF110"}, i7565.ExtendedRemote, 0x18DAF110, nil, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetSendFlags(t)
			for k, v := range tt.flags {
				if err := sendCmd.Flags().Set(k, v); err != nil {
					t.Fatal(err)
				}
			}
			f, err := frameFromArgs(sendCmd, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if f.Kind != tt.wantKind || f.Identifier != tt.wantID || f.DLC != tt.wantDLC || !bytes.Equal(f.Data, tt.wantData) {
				t.Errorf("got %+v", f)
			}
		})
	}
}

func TestFrameFromArgsInvalid(t *testing.T) {
	resetSendFlags(t)
	if _, err := frameFromArgs(sendCmd, []string{"800"}); !errors.Is(err, i7565.ErrInvalidArgument) {
		t.Errorf("id 0x800: %v", err)
	}
	if _, err := frameFromArgs(sendCmd, []string{"100", "000102030405060708"}); !errors.Is(err, i7565.ErrInvalidArgument) {
		t.Errorf("9 bytes: %v", err)
	}
	if _, err := frameFromArgs(sendCmd, []string{"xyz"}); err == nil {
		t.Error("expected identifier error")
	}
	if _, err := frameFromArgs(sendCmd, []string{"100", "0"}); err == nil {
		t.Error("expected data error")
	}
	sendCmd.Flags().Set(flagRemote, "true")
	if _, err := frameFromArgs(sendCmd, []string{"100", "00"}); err == nil {
		t.Error("expected error for remote frame with data")
	}
}

func TestResult(t *testing.T) {
	if err := result(i7565.CodeOK, nil); err != nil {
		t.Fatal(err)
	}
	err := result(i7565.CodeTimeout, nil)
	var devErr *i7565.DeviceError
	if !errors.As(err, &devErr) || devErr.Code != i7565.CodeTimeout {
		t.Fatalf("result(CodeTimeout) = %v, want *DeviceError", err)
	}
	transport := errors.New("port closed")
	if err := result(i7565.CodeOK, transport); err != transport {
		t.Fatalf("result passed %v, want transport error", err)
	}
}

func resetSendFlags(t *testing.T) {
	t.Helper()
	for _, name := range []string{flagExtended, flagRemote} {
		if err := sendCmd.Flags().Set(name, "false"); err != nil {
			t.Fatal(err)
		}
	}
	if err := sendCmd.Flags().Set(flagDLC, "0"); err != nil {
		t.Fatal(err)
	}
}
