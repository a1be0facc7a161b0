package intake

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinDescriptionLength is counted in characters, not bytes.
const MinDescriptionLength = 20

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Reasons reported per field.
const (
	ReasonName        = "El nombre es obligatorio"
	ReasonDescription = "La descripción debe tener al menos 20 caracteres"
	ReasonChannel     = "Debe seleccionar un canal de contacto válido"
	ReasonEmail       = "Debe proporcionar un email válido"
	ReasonPhone       = "Debe proporcionar un número de WhatsApp válido (ej: +569XXXXXXXX)"
	ReasonPolicy      = "Debe aceptar la política de privacidad"
)

// ValidationOutcome is either accepted, carrying the submission, or
// rejected, carrying every failing field. Never both.
type ValidationOutcome struct {
	Submission Submission
	Errors     FieldErrors
}

// Accepted reports whether every rule passed.
func (o ValidationOutcome) Accepted() bool {
	return len(o.Errors) == 0
}

// Validate checks all rules and collects every violation.
func Validate(sub Submission) ValidationOutcome {
	errs := FieldErrors{}

	if strings.TrimSpace(sub.Name) == "" {
		errs[FieldName] = ReasonName
	}
	if utf8.RuneCountInString(strings.TrimSpace(sub.Description)) < MinDescriptionLength {
		errs[FieldDescription] = ReasonDescription
	}

	switch sub.Channel {
	case ChannelEmail:
		if !emailPattern.MatchString(sub.Email) {
			errs[FieldEmail] = ReasonEmail
		}
	case ChannelMessage:
		if _, ok := NormalizePhone(sub.Phone); !ok {
			errs[FieldPhone] = ReasonPhone
		}
	default:
		errs[FieldChannel] = ReasonChannel
	}

	if !sub.PolicyAccepted {
		errs[FieldPolicy] = ReasonPolicy
	}

	if len(errs) > 0 {
		return ValidationOutcome{Errors: errs}
	}
	return ValidationOutcome{Submission: sub}
}
