package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

func registerBuiltins(r *Registry) {
	r.Register("boolean.yesNo", booleanYesNo)
	r.Register("boolean.oneZero", booleanOneZero)
	r.Register("string.uppercase", stringUppercase)
	r.Register("string.lowercase", stringLowercase)
	r.Register("string.trim", stringTrim)
	r.Register("phone.digits", phoneDigits)
	r.Register("phone.e164", phoneE164)
	r.Register("date.isoDate", dateISODate)
	r.Register("date.usDate", dateUSDate)
	r.Register("number.currency", numberCurrency)
	r.Register("number.integer", numberInteger)
	r.Register("zip.five", zipFive)
	r.Register("service.windowTypeCode", serviceWindowTypeCode)
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", value)
	}
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0", "":
			return false, nil
		}
		return false, fmt.Errorf("cannot parse %q as boolean", v)
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

func asFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}

func booleanYesNo(value interface{}) (interface{}, error) {
	b, err := asBool(value)
	if err != nil {
		return nil, err
	}
	if b {
		return "Yes", nil
	}
	return "No", nil
}

func booleanOneZero(value interface{}) (interface{}, error) {
	b, err := asBool(value)
	if err != nil {
		return nil, err
	}
	if b {
		return "1", nil
	}
	return "0", nil
}

func stringUppercase(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

func stringLowercase(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func stringTrim(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(s), nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func phoneDigits(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	digits := digitsOnly(s)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return nil, fmt.Errorf("phone %q does not contain 10 digits", s)
	}
	return digits, nil
}

func phoneE164(value interface{}) (interface{}, error) {
	digits, err := phoneDigits(value)
	if err != nil {
		return nil, err
	}
	return "+1" + digits.(string), nil
}

var dateInputLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

func dateISODate(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return t.Format("2006-01-02"), nil
}

func dateUSDate(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return t.Format("01/02/2006"), nil
}

func numberCurrency(value interface{}) (interface{}, error) {
	f, err := asFloat(value)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%.2f", f), nil
}

func numberInteger(value interface{}) (interface{}, error) {
	f, err := asFloat(value)
	if err != nil {
		return nil, err
	}
	return int(f), nil
}

func zipFive(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	digits := digitsOnly(s)
	if len(digits) < 5 {
		return nil, fmt.Errorf("zip %q has fewer than 5 digits", s)
	}
	return digits[:5], nil
}

// serviceWindowTypeCode maps window-replacement form answers to the industry
// short codes most window buyers expect.
var windowTypeCodes = map[string]string{
	"double_hung": "DH",
	"casement":    "CA",
	"sliding":     "SL",
	"bay":         "BA",
	"bow":         "BO",
	"picture":     "PI",
	"awning":      "AW",
}

func serviceWindowTypeCode(value interface{}) (interface{}, error) {
	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(s))
	if code, ok := windowTypeCodes[key]; ok {
		return code, nil
	}
	return nil, fmt.Errorf("unknown window type %q", s)
}
