// Package qris renders dynamic QRIS payloads from a static merchant template.
//
// A QRIS payload is a flat sequence of tag-length-value fields terminated by a
// CRC field ("6304" + 4 uppercase hex digits). Injecting an amount means
// flipping the point-of-initiation field from static (11) to dynamic (12),
// splicing a tag-54 amount field in front of the country-code anchor "5802ID",
// and recomputing the checksum. The output must be byte-identical to what real
// wallet apps expect; any deviation makes the code unscannable.
package qris

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// staticMarker / dynamicMarker is the point-of-initiation TLV
	// (tag 01, length 02, value 11 or 12).
	staticMarker  = "010211"
	dynamicMarker = "010212"

	// countryAnchor is the country-code field the amount must precede.
	countryAnchor = "5802ID"

	amountTag = "54"

	crcLen = 4

	// minTemplateLen is a sanity floor; real payloads are well over 100 chars.
	minTemplateLen = 20
)

// ErrMissingAnchor reports a template without the "5802ID" country field.
// The amount field has to be spliced in front of it, so a template lacking it
// is a fatal configuration error, not something to skip over.
var ErrMissingAnchor = errors.New("qris: template missing 5802ID anchor field")

// ErrBadTemplate reports a template too short to carry a checksum.
var ErrBadTemplate = errors.New("qris: template too short")

// ErrBadAmount reports a non-positive amount.
var ErrBadAmount = errors.New("qris: amount must be positive")

// Dynamic builds an amount-specific payload from a static merchant template.
// The template's trailing 4-character checksum is discarded and a fresh one is
// computed over the spliced payload.
func Dynamic(template string, amount int64) (string, error) {
	if len(template) < minTemplateLen {
		return "", ErrBadTemplate
	}
	if amount <= 0 {
		return "", ErrBadAmount
	}

	body := template[:len(template)-crcLen]
	body = strings.Replace(body, staticMarker, dynamicMarker, 1)

	i := strings.Index(body, countryAnchor)
	if i < 0 {
		return "", ErrMissingAnchor
	}

	amountStr := strconv.FormatInt(amount, 10)
	tag54 := fmt.Sprintf("%s%02d%s", amountTag, len(amountStr), amountStr)

	payload := body[:i] + tag54 + body[i:]
	return payload + Checksum(payload), nil
}

// Checksum computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF, no
// reflection) over the payload and returns it as 4 uppercase hex digits.
func Checksum(payload string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(payload); i++ {
		crc ^= uint16(payload[i]) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", crc)
}

// Validate reports whether payload looks like a QRIS string: correct preamble,
// plausible length, and a checksum that matches its body.
func Validate(payload string) bool {
	if !strings.HasPrefix(payload, "0002") || len(payload) < 100 {
		return false
	}
	body, crc := payload[:len(payload)-crcLen], payload[len(payload)-crcLen:]
	return Checksum(body) == crc
}

// ParseAmount extracts the tag-54 transaction amount from a dynamic payload.
// Returns false for static payloads that carry no amount field.
func ParseAmount(payload string) (int64, bool) {
	i := strings.Index(payload, countryAnchor)
	if i < 0 {
		return 0, false
	}
	// Walk back: the amount field, when present, sits directly before the
	// anchor as "54" + 2-digit length + digits.
	head := payload[:i]
	for j := 0; j+4 <= len(head); j++ {
		if head[j:j+2] != amountTag {
			continue
		}
		n, err := strconv.Atoi(head[j+2 : j+4])
		if err != nil || j+4+n != len(head) {
			continue
		}
		amount, err := strconv.ParseInt(head[j+4:], 10, 64)
		if err != nil {
			return 0, false
		}
		return amount, true
	}
	return 0, false
}
