package utils

import "github.com/shopspring/decimal"

// FormatRate renders an hourly rate with two decimals and thousands separators, e.g. "1,250.00".
func FormatRate(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	sign := ""
	if fixed[0] == '-' {
		sign = "-"
		fixed = fixed[1:]
	}

	integerPart := fixed[:len(fixed)-3]
	decimalPart := fixed[len(fixed)-2:]

	var out []byte
	for i := range integerPart {
		if i > 0 && (len(integerPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, integerPart[i])
	}
	return sign + string(out) + "." + decimalPart
}
