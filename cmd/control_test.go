package cmd

import "testing"

func TestParseSeek(t *testing.T) {
	tests := []struct {
		arg         string
		wantValue   int64
		wantPercent bool
		wantErr     bool
	}{
		{"1:20", 80000, false, false},
		{"0:05", 5000, false, false},
		{"12:00", 720000, false, false},
		{"95", 95000, false, false},
		{"2.5", 2500, false, false},
		{"40%", 40, true, false},
		{"0%", 0, true, false},
		{"100%", 100, true, false},
		{" 1:00 ", 60000, false, false},
		{"101%", 0, false, true},
		{"-5", 0, false, true},
		{"1:60", 0, false, true},
		{"a:10", 0, false, true},
		{"soon", 0, false, true},
		{"%", 0, false, true},
		{"NaN", 0, false, true},
		{"Inf", 0, false, true},
		{"-Inf", 0, false, true},
		{"1e30", 0, false, true},
		{"86400", 86400000, false, false},
		{"86401", 0, false, true},
		{"99999999999:00", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			value, percent, err := parseSeek(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSeek(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if value != tt.wantValue || percent != tt.wantPercent {
				t.Errorf("parseSeek(%q) = %d, %v; want %d, %v",
					tt.arg, value, percent, tt.wantValue, tt.wantPercent)
			}
		})
	}
}
