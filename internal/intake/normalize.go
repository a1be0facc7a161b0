package intake

import (
	"strconv"
	"strings"
	"unicode"
)

var markupStripper = strings.NewReplacer("<", "", ">", "")

// SanitizeString trims surrounding whitespace and removes the characters
// that open and close markup tags.
func SanitizeString(s string) string {
	return strings.TrimSpace(markupStripper.Replace(s))
}

// dropPhoneNoise removes whitespace of any kind, hyphens and parentheses.
func dropPhoneNoise(r rune) rune {
	if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
		return -1
	}
	return r
}

// NormalizePhone rewrites a Chilean mobile number to +569XXXXXXXX. Accepted
// shapes after stripping separators and a leading +: 569XXXXXXXX,
// 9XXXXXXXX and 09XXXXXXXX.
func NormalizePhone(input string) (string, bool) {
	cleaned := strings.Map(dropPhoneNoise, input)
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" || !allDigits(cleaned) {
		return "", false
	}
	switch {
	case len(cleaned) == 11 && strings.HasPrefix(cleaned, "569"):
		return "+" + cleaned, true
	case len(cleaned) == 9 && strings.HasPrefix(cleaned, "9"):
		return "+56" + cleaned, true
	case len(cleaned) == 10 && strings.HasPrefix(cleaned, "09"):
		return "+56" + cleaned[1:], true
	}
	return "", false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseChannel maps the wire value onto the closed channel set. "message"
// is accepted as an alias of the WhatsApp channel.
func ParseChannel(s string) Channel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return ChannelEmail
	case "whatsapp", "message":
		return ChannelMessage
	}
	return ChannelNone
}

// Normalize turns a raw field bag into a sanitized submission. It never fails.
func Normalize(raw RawSubmission) Submission {
	field := func(name string) string {
		return SanitizeString(fieldString(raw.Fields[name]))
	}
	sub := Submission{
		Name:           field(FieldName),
		Company:        field(FieldCompany),
		Email:          field(FieldEmail),
		Phone:          field(FieldPhone),
		Channel:        ParseChannel(field(FieldChannel)),
		Service:        field(FieldService),
		Quantity:       field(FieldQuantity),
		RequiredDate:   field(FieldRequiredDate),
		Description:    field(FieldDescription),
		PolicyAccepted: policyAccepted(raw.Fields[FieldPolicy]),
		UTMSource:      field(FieldUTMSource),
		UTMMedium:      field(FieldUTMMedium),
		UTMCampaign:    field(FieldUTMCampaign),
		SourcePage:     field(FieldSourcePage),
		IP:             SanitizeString(raw.ClientIP),
		UserAgent:      SanitizeString(raw.UserAgent),
	}
	if sub.Channel == ChannelMessage {
		if phone, ok := NormalizePhone(sub.Phone); ok {
			sub.Phone = phone
		}
	}
	return sub
}

// policyAccepted is true only for a boolean true or the exact text "true".
func policyAccepted(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []string:
		if len(t) > 0 {
			return t[0]
		}
		return ""
	}
	return ""
}
