package limits

import (
	"errors"
	"strings"
	"testing"
)

// TestValidateMessageSize tests the payload size boundaries
func TestValidateMessageSize(t *testing.T) {
	tests := []struct {
		name    string
		size    uint32
		wantErr bool
	}{
		{"empty payload", 0, false},
		{"small payload", 33, false},
		{"exactly at limit", MaxMessageData, false},
		{"one over limit", MaxMessageData + 1, true},
		{"huge declared size", 0xffffffff, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageSize(tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessageSize(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrMessageTooLarge) {
				t.Errorf("expected ErrMessageTooLarge, got %v", err)
			}
		})
	}
}

// TestValidateMessageData tests validation of actual payload slices
func TestValidateMessageData(t *testing.T) {
	if err := ValidateMessageData(nil); err != nil {
		t.Errorf("nil payload should be valid, got %v", err)
	}
	if err := ValidateMessageData(make([]byte, MaxMessageData)); err != nil {
		t.Errorf("payload at limit should be valid, got %v", err)
	}
	if err := ValidateMessageData(make([]byte, MaxMessageData+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

// TestValidateCallsign tests callsign validation
func TestValidateCallsign(t *testing.T) {
	tests := []struct {
		name     string
		callsign string
		wantErr  bool
	}{
		{"plain callsign", "W1AW", false},
		{"link suffix", "K1ABC-L", false},
		{"repeater suffix", "N0CALL-R", false},
		{"empty", "", true},
		{"too long", strings.Repeat("A", MaxCallsign+1), true},
		{"at limit", strings.Repeat("A", MaxCallsign), false},
		{"embedded space", "W1 AW", true},
		{"control byte", "W1AW\r", true},
		{"non ascii", "W1ÄW", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCallsign(tt.callsign)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCallsign(%q) error = %v, wantErr %v", tt.callsign, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrCallsign) {
				t.Errorf("expected ErrCallsign, got %v", err)
			}
		})
	}
}
