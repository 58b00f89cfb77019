package template

import (
	"strconv"
	"strings"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/dispatch_service/localize"
)

// Render substitutes directives of the form {{...}} in tpl against ctx.
// Three directive forms share the delimiter syntax:
//
//	{{path}}                 dotted-path lookup, unresolved renders ""
//	{{money amount currency}} locale-aware minor-unit currency formatting
//	{{date path}}            locale-aware date/time formatting
//
// Rendering is a pure, terminating string transformation. Malformed input
// (unterminated delimiters, empty directives, bad values) degrades to literal
// text or the empty string; it never fails.
func Render(tpl string, ctx map[string]any, locale string) string {
	var b strings.Builder
	b.Grow(len(tpl))

	for {
		start := strings.Index(tpl, "{{")
		if start < 0 {
			b.WriteString(tpl)
			return b.String()
		}
		b.WriteString(tpl[:start])
		rest := tpl[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			// Unterminated directive: emit literally.
			b.WriteString(tpl[start:])
			return b.String()
		}
		b.WriteString(evalDirective(rest[:end], ctx, locale))
		tpl = rest[end+2:]
	}
}

func evalDirective(directive string, ctx map[string]any, locale string) string {
	fields := strings.Fields(directive)
	switch {
	case len(fields) == 0:
		return ""
	case fields[0] == "money" && len(fields) >= 3:
		return evalMoney(fields[1], fields[2], ctx, locale)
	case fields[0] == "date" && len(fields) >= 2:
		return evalDate(fields[1], ctx, locale)
	case len(fields) == 1:
		value, ok := domain.LookupPath(ctx, fields[0])
		if !ok {
			return ""
		}
		return stringify(value)
	default:
		// Unknown multi-word directive: treat as unresolved.
		return ""
	}
}

func evalMoney(amountPath, currencyPath string, ctx map[string]any, locale string) string {
	amountVal, ok := domain.LookupPath(ctx, amountPath)
	if !ok {
		return ""
	}
	amount, ok := asMinorUnits(amountVal)
	if !ok {
		return ""
	}
	code := ""
	if currencyVal, found := domain.LookupPath(ctx, currencyPath); found {
		if s, isString := currencyVal.(string); isString {
			code = s
		}
	}
	return localize.FormatMoney(amount, code, locale)
}

func evalDate(isoPath string, ctx map[string]any, locale string) string {
	value, ok := domain.LookupPath(ctx, isoPath)
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return localize.FormatDate(s, locale)
}

// asMinorUnits coerces JSON-decoded numbers (float64) and native integer
// types to a minor-unit amount.
func asMinorUnits(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		// Maps, slices and nil have no sensible inline rendering.
		return ""
	}
}
