package model

import "testing"

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name string
		pin  Pin
		want string
	}{
		{"title wins", Pin{ID: "p1", Title: "Free couch", Address: "123 Bedford Ave"}, "Free couch"},
		{"address fallback", Pin{ID: "p1", Address: "123 Bedford Ave"}, "123 Bedford Ave"},
		{"id last resort", Pin{ID: "p1"}, "p1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pin.DisplayName(); got != tc.want {
				t.Errorf("DisplayName() = %q, want %q", got, tc.want)
			}
		})
	}
}
