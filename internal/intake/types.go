package intake

import (
	"net/http"

	"github.com/wolfman30/lead-intake/internal/files"
)

// Wire names of the contact form fields.
const (
	FieldName         = "nombre"
	FieldCompany      = "empresa"
	FieldEmail        = "email"
	FieldPhone        = "telefono_whatsapp"
	FieldChannel      = "canal_preferido"
	FieldService      = "servicio_interes"
	FieldQuantity     = "cantidad"
	FieldRequiredDate = "fecha_requerida"
	FieldDescription  = "descripcion"
	FieldPolicy       = "acepta_politica"
	FieldUTMSource    = "utm_source"
	FieldUTMMedium    = "utm_medium"
	FieldUTMCampaign  = "utm_campaign"
	FieldSourcePage   = "pagina_origen"

	// AttachmentField is the multipart part carrying the optional file.
	AttachmentField = "archivo_imagen"
)

// Channel is the submitter's preferred confirmation method.
type Channel string

const (
	ChannelNone    Channel = ""
	ChannelEmail   Channel = "email"
	ChannelMessage Channel = "whatsapp"
)

// RawSubmission is the untrusted field bag received from the transport.
// Values are usually strings; JSON bodies may carry booleans or numbers.
type RawSubmission struct {
	Fields     map[string]any
	Attachment *files.Attachment
	ClientIP   string
	UserAgent  string
}

// Submission is a sanitized candidate record. Every text field is safe to
// embed in generated text or markup.
type Submission struct {
	Name           string
	Company        string
	Email          string
	Phone          string
	Channel        Channel
	Service        string
	Quantity       string
	RequiredDate   string
	Description    string
	PolicyAccepted bool
	UTMSource      string
	UTMMedium      string
	UTMCampaign    string
	SourcePage     string
	IP             string
	UserAgent      string
}

// FieldErrors maps a wire field name to a user-facing reason.
type FieldErrors map[string]string

// ErrorCode classifies a rejected submission.
type ErrorCode string

const (
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeInvalidAttachment ErrorCode = "invalid_attachment"
	CodeInvalidSubmission ErrorCode = "invalid_submission"
	CodePersistenceFailed ErrorCode = "persistence_failed"
	CodeUnexpected        ErrorCode = "unexpected"
)

// User-facing response messages.
const (
	MessageSuccess           = "¡Solicitud recibida exitosamente! Te contactaremos pronto."
	MessageRateLimited       = "Demasiadas solicitudes. Por favor intenta nuevamente en unos minutos."
	MessageValidationFailed  = "Validación fallida"
	MessageInvalidSubmission = "Invalid submission"
	MessagePersistenceFailed = "Error al guardar la solicitud. Por favor intenta nuevamente."
	MessageUnexpected        = "Error inesperado. Por favor intenta nuevamente."
)

// Result is the single outcome of a submission. It never reveals which
// non-critical side effects failed.
type Result struct {
	Success     bool
	LeadID      string
	Code        ErrorCode
	Message     string
	FieldErrors FieldErrors
}

func success(leadID string) Result {
	return Result{Success: true, LeadID: leadID, Message: MessageSuccess}
}

func failure(code ErrorCode, message string) Result {
	return Result{Code: code, Message: message}
}

// Outcome is a low-cardinality label for metrics and logs.
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	return string(r.Code)
}

// HTTPStatus maps the result onto the response status code.
func (r Result) HTTPStatus() int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Code {
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeValidationFailed, CodeInvalidAttachment, CodeInvalidSubmission:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
