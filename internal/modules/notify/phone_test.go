package notify

import "testing"

func TestFormatPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+254718693484", "+254718693484", true},
		{"254718693484", "+254718693484", true},
		{"0718693484", "+254718693484", true},
		{"+254 718 693 484", "+254718693484", true},
		{"254-718-693-484", "+254718693484", true},
		{"718693484", "+254718693484", true},
		{"(0718) 693.484", "+254718693484", true},
		{"", "", false},
		{"   ", "", false},
		{"+", "", false},
		{"07x8693484", "", false},
		{"12", "", false},
	}
	for _, tc := range cases {
		got, ok := FormatPhone(tc.in, "254")
		if got != tc.want || ok != tc.ok {
			t.Errorf("FormatPhone(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
