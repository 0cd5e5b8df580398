package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"ContractAuditor/internal/domain"
)

const maxSnippetRunes = 200

// amount is a monetary literal: grouped digits and exactly two decimals.
// Groups may be separated by ordinary or non-breaking spaces.
const amount = `(\d[\d\s\x{00A0}\x{202F}]*[.,]\d{2})`

// pricePatterns are tried in order against the raw text; the first match wins.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)цена.{1,200}?` + amount),
	regexp.MustCompile(`(?is)стоимость.{1,200}?` + amount),
	regexp.MustCompile(`(?i)` + amount + `[\s\x{00A0}]*рубл`),
}

// ExtractPrice finds the contract price in text. RawText keeps the literal
// as written so that two documents can be compared verbatim.
func ExtractPrice(text string) domain.PriceInfo {
	for _, pattern := range pricePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := parseAmount(m[1])
		if err != nil {
			continue
		}
		f := value.InexactFloat64()
		return domain.PriceInfo{
			Found:          true,
			RawText:        m[1],
			NumericValue:   &f,
			ContextSnippet: snippet(m[0]),
		}
	}
	return domain.PriceInfo{}
}

// parseAmount drops group separators and normalizes the decimal comma.
func parseAmount(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteByte('.')
		}
	}
	return decimal.NewFromString(b.String())
}

func snippet(match string) string {
	s := strings.Join(strings.Fields(match), " ")
	if utf8.RuneCountInString(s) <= maxSnippetRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[len(runes)-maxSnippetRunes:])
}
