package payment

import "testing"

func TestUniqueAmountWithinBounds(t *testing.T) {
	const base = 15000
	seen := map[int64]bool{}
	for i := 0; i < 2000; i++ {
		got := UniqueAmount(base)
		if got < base+MinSurcharge || got > base+MaxSurcharge {
			t.Fatalf("UniqueAmount(%d) = %d, outside [%d,%d]", base, got, base+MinSurcharge, base+MaxSurcharge)
		}
		seen[got-base] = true
	}
	// both bounds must be reachable; 2000 draws over 91 values makes a miss
	// of either endpoint vanishingly unlikely
	if !seen[MinSurcharge] || !seen[MaxSurcharge] {
		t.Errorf("surcharge bounds not inclusive: saw min=%v max=%v", seen[MinSurcharge], seen[MaxSurcharge])
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "Rp 0"},
		{999, "Rp 999"},
		{1000, "Rp 1.000"},
		{20000, "Rp 20.000"},
		{15060, "Rp 15.060"},
		{1234567, "Rp 1.234.567"},
		{-5000, "-Rp 5.000"},
	}
	for _, tc := range cases {
		if got := FormatRupiah(tc.in); got != tc.want {
			t.Errorf("FormatRupiah(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"15.060", 15060, false},
		{"1.520.060", 1520060, false},
		{"20000", 20000, false},
		{"0", 0, false},
		{"", 0, true},
		{"12a", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
