package localize

import (
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Resolver maps noisy client/user locale hints to one supported locale tag.
type Resolver struct {
	supported []string
	tags      []language.Tag
	matcher   language.Matcher
	def       string
}

// NewResolver builds a resolver over the supported locale tags. The first
// entry that equals defaultLocale wins ties; defaultLocale is returned for
// anything unrecognized.
func NewResolver(supported []string, defaultLocale string) *Resolver {
	tags := make([]language.Tag, 0, len(supported))
	ordered := append([]string{defaultLocale}, supported...)
	seen := make(map[string]bool, len(ordered))
	kept := make([]string, 0, len(ordered))
	for _, s := range ordered {
		if s == "" || seen[s] {
			continue
		}
		tag, err := language.Parse(s)
		if err != nil {
			continue
		}
		seen[s] = true
		kept = append(kept, s)
		tags = append(tags, tag)
	}
	return &Resolver{
		supported: kept,
		tags:      tags,
		matcher:   language.NewMatcher(tags),
		def:       defaultLocale,
	}
}

// Resolve normalizes case and variant separators ("fr-FR", "fr_FR", "FR" all
// map to "fr") and falls back to the default locale for anything else.
// Total: never fails.
func (r *Resolver) Resolve(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return r.def
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return r.def
	}
	_, idx, conf := r.matcher.Match(tag)
	if conf == language.No {
		return r.def
	}
	return r.supported[idx]
}

// Default returns the default locale tag.
func (r *Resolver) Default() string {
	return r.def
}

// Currencies with no minor unit (divisor 1) or three minor-unit digits
// (divisor 1000). Everything else divides by 100.
var (
	zeroDecimalCurrencies = map[string]bool{
		"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true,
		"JPY": true, "KMF": true, "KRW": true, "PYG": true, "RWF": true,
		"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
		"XPF": true,
	}
	threeDecimalCurrencies = map[string]bool{
		"BHD": true, "IQD": true, "JOD": true, "KWD": true, "LYD": true,
		"OMR": true, "TND": true,
	}
)

const fallbackCurrencyCode = "EUR"

// Locales that conventionally place the currency symbol after the amount.
var symbolAfterAmount = map[string]bool{
	"fr": true, "de": true, "es": true, "it": true, "pt": true,
	"nl": true, "fi": true, "sv": true, "pl": true, "ru": true,
}

// FormatMoney renders a minor-unit integer amount as a locale-correct display
// string. Unrecognized currency codes fall back to the default currency
// display rather than failing.
func FormatMoney(amountMinor int64, currencyCode string, locale string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	unit, err := currency.ParseISO(code)
	if err != nil {
		code = fallbackCurrencyCode
		unit = currency.EUR
	}

	divisor := float64(100)
	digits := 2
	switch {
	case zeroDecimalCurrencies[code]:
		divisor, digits = 1, 0
	case threeDecimalCurrencies[code]:
		divisor, digits = 1000, 3
	}
	value := float64(amountMinor) / divisor

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	amount := p.Sprint(number.Decimal(value, number.Scale(digits)))
	symbol := p.Sprint(currency.Symbol(unit))

	base, _ := tag.Base()
	if symbolAfterAmount[base.String()] {
		// Non-breaking space between amount and symbol, per CLDR convention.
		return amount + " " + symbol
	}
	return symbol + amount
}

// FormatDate renders an ISO-8601 timestamp (or plain date) for the locale.
// Invalid or empty input renders as the empty string, never an error.
func FormatDate(isoValue string, locale string) string {
	isoValue = strings.TrimSpace(isoValue)
	if isoValue == "" {
		return ""
	}

	dateOnly := false
	t, err := time.Parse(time.RFC3339, isoValue)
	if err != nil {
		t, err = time.Parse("2006-01-02", isoValue)
		if err != nil {
			return ""
		}
		dateOnly = true
	}

	base := "en"
	if tag, parseErr := language.Parse(strings.ReplaceAll(locale, "_", "-")); parseErr == nil {
		b, _ := tag.Base()
		base = b.String()
	}

	var dateLayout, timeLayout string
	switch base {
	case "fr", "es", "it", "pt":
		dateLayout, timeLayout = "02/01/2006", "02/01/2006 15:04"
	case "de", "ru", "fi", "pl":
		dateLayout, timeLayout = "02.01.2006", "02.01.2006 15:04"
	default:
		dateLayout, timeLayout = "Jan 2, 2006", "Jan 2, 2006 3:04 PM"
	}

	if dateOnly {
		return t.Format(dateLayout)
	}
	return t.Format(timeLayout)
}
