package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Common amount constants
const (
	MsatsPerSat int64 = 1000
	SatsPerBTC  int64 = 100_000_000
	MsatsPerBTC int64 = MsatsPerSat * SatsPerBTC
)

// FormatMsats formats a millisatoshi amount as BTC with eight decimal places,
// truncating sub-satoshi remainders, e.g. 123456789 -> "0.00123456 BTC".
func FormatMsats(msats int64) string {
	sign := ""
	if msats < 0 {
		sign = "-"
		msats = -msats
	}

	sats := msats / MsatsPerSat
	return fmt.Sprintf("%s%d.%08d BTC", sign, sats/SatsPerBTC, sats%SatsPerBTC)
}

// FormatSats formats a millisatoshi amount as whole satoshis with thousands
// separators, e.g. 1234567000 -> "1,234,567 sat".
func FormatSats(msats int64) string {
	sats := msats / MsatsPerSat
	sign := ""
	if sats < 0 {
		sign = "-"
		sats = -sats
	}

	digits := strconv.FormatInt(sats, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String() + " sat"
}
