package helpers

import "testing"

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{150000, 2, "1500"},
		{150050, 2, "1500.5"},
		{0, 2, "0"},
		{999, 0, "999"},
	}

	for _, tt := range tests {
		got := FormatAmount(tt.amount, tt.decimals)
		if got != tt.want {
			t.Errorf("FormatAmount(%d, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		s        string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"15.5", 2, 1550, false},
		{"1500", 2, 150000, false},
		{"", 2, 0, true},
		{"12.ab", 2, 0, true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.s, tt.decimals)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q, %d) expected error, got nil", tt.s, tt.decimals)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q, %d) unexpected error: %v", tt.s, tt.decimals, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAmount(%q, %d) = %d, want %d", tt.s, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	amount, err := ParseAmount(FormatAmount(123456, 2), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 123456 {
		t.Errorf("round trip = %d, want 123456", amount)
	}
}
