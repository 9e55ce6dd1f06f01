package transform

import (
	"math"
	"math/big"
	"strings"

	"github.com/Ramsey-B/trellis/pkg/utils"
)

const maxDecimalPlaces = 100

// formatNumber renders value with a fixed number of decimals (or the
// shortest form when decimalPlaces is nil) between prefix and suffix.
// nil yields "" and non numeric values come back unchanged.
func formatNumber(value any, decimalPlaces *int, prefix, suffix string) string {
	if value == nil {
		return ""
	}

	num, ok := utils.ToNumber(value)
	if !ok {
		return utils.ToString(value)
	}

	var formatted string
	if decimalPlaces != nil {
		formatted = toFixed(num, clamp(*decimalPlaces, 0, maxDecimalPlaces))
	} else {
		formatted = utils.FormatNumber(num)
	}

	return prefix + formatted + suffix
}

// toFixed rounds the exact binary value of num to digits decimals, taking
// ties away from zero. Magnitudes of 1e21 and up use the shortest form.
func toFixed(num float64, digits int) string {
	if math.IsNaN(num) || math.IsInf(num, 0) || math.Abs(num) >= 1e21 {
		return utils.FormatNumber(num)
	}

	exact := new(big.Rat).SetFloat64(math.Abs(num))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	numerator := new(big.Int).Mul(exact.Num(), scale)

	quotient, remainder := new(big.Int).QuoRem(numerator, exact.Denom(), new(big.Int))
	if remainder.Lsh(remainder, 1).Cmp(exact.Denom()) >= 0 {
		quotient.Add(quotient, big.NewInt(1))
	}

	s := quotient.String()
	if digits > 0 {
		if len(s) <= digits {
			s = strings.Repeat("0", digits-len(s)+1) + s
		}
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}

	if num < 0 {
		return "-" + s
	}
	return s
}
