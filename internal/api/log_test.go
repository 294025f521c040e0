package api

import "testing"

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "standard line",
			raw:  `time=2026-08-30T14:05:09+02:00 level=INFO msg="fetched pins" count=42 truncated=false`,
			want: "14:05:09 fetched pins (count=42, truncated=false)",
		},
		{
			name: "params sorted",
			raw:  `time=2026-08-30T14:05:09+02:00 level=INFO msg=hit z=1 a=2`,
			want: "14:05:09 hit (a=2, z=1)",
		},
		{
			name: "long values dropped",
			raw:  `time=2026-08-30T14:05:09+02:00 level=WARN msg=oops error="something went terribly wrong upstream"`,
			want: "14:05:09 oops",
		},
		{
			name: "no structured content",
			raw:  "plain text line",
			want: "plain text line",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLogLine(tt.raw); got != tt.want {
				t.Errorf("formatLogLine(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
