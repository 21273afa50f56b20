// Package payment holds the amount helpers shared by order creation.
package payment

import (
	"math/rand"
	"strconv"
)

// Surcharge bounds for the unique payable amount. Many buyers share one base
// price, so each order adds a small random surcharge and the exact wire amount
// becomes the matching key against the mutation feed. This is probabilistic:
// two pending orders can still collide, and the matcher's first-match policy
// owns that case.
const (
	MinSurcharge = 10
	MaxSurcharge = 100
)

// UniqueAmount returns base plus a surcharge drawn uniformly from
// [MinSurcharge, MaxSurcharge].
func UniqueAmount(base int64) int64 {
	return base + MinSurcharge + rand.Int63n(MaxSurcharge-MinSurcharge+1)
}

// FormatRupiah renders an amount as "Rp 20.000" with dot thousands separators.
// Rupiah carries no minor units.
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	if neg {
		return "-Rp " + string(out)
	}
	return "Rp " + string(out)
}

// ParseAmount normalizes a feed-formatted amount string ("1.520.060") to an
// integer by stripping dot separators.
func ParseAmount(s string) (int64, error) {
	var cleaned []byte
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == ',' {
			continue
		}
		cleaned = append(cleaned, s[i])
	}
	return strconv.ParseInt(string(cleaned), 10, 64)
}
