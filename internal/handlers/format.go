package handlers

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
)

var templateFuncs = template.FuncMap{
	"money":   formatMoney,
	"percent": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

// formatMoney renders d with two decimals and comma thousands separators,
// e.g. "-1,234.50".
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
