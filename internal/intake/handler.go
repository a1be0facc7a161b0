package intake

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/wolfman30/lead-intake/internal/files"
	"github.com/wolfman30/lead-intake/internal/http/middleware"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

const (
	// maxBodySize leaves room for form fields around a maximum attachment.
	maxBodySize = MaxAttachmentSize + 1<<20
	// maxFormMemory is held in memory before multipart parts spill to disk.
	maxFormMemory = 12 << 20
)

var errUnsupportedBody = errors.New("unsupported content type")

// Handler serves the contact form endpoint.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates the HTTP handler for submissions.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type submitResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	LeadID  string      `json:"leadId,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    ErrorCode   `json:"code,omitempty"`
	Errors  FieldErrors `json:"errors,omitempty"`
}

// Submit handles POST /api/contact. The rate guard runs before the body is read.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	clientIP := middleware.ClientIP(r)
	if res, ok := h.svc.Admit(r.Context(), clientIP); !ok {
		writeResult(w, res)
		return
	}

	raw, cleanup, err := h.parse(w, r)
	defer cleanup()
	if err != nil {
		writeResult(w, h.parseFailure(err, clientIP))
		return
	}
	raw.ClientIP = clientIP
	raw.UserAgent = r.UserAgent()

	writeResult(w, h.svc.Process(r.Context(), raw))
}

func (h *Handler) parseFailure(err error, clientIP string) Result {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return failure(CodeInvalidAttachment, ReasonAttachmentTooLarge)
	case errors.Is(err, errUnsupportedBody):
		return failure(CodeInvalidSubmission, MessageInvalidSubmission)
	}
	h.logger.Error("could not parse submission", "client_ip", clientIP, "error", err)
	return failure(CodeUnexpected, MessageUnexpected)
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (RawSubmission, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return RawSubmission{}, noop, errUnsupportedBody
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return RawSubmission{}, noop, err
		}
		form := r.MultipartForm
		cleanup := func() { _ = form.RemoveAll() }
		raw := RawSubmission{Fields: flatten(form.Value)}
		att, closeFile, err := openAttachment(form.File[AttachmentField])
		if err != nil {
			return RawSubmission{}, cleanup, err
		}
		raw.Attachment = att
		return raw, func() { closeFile(); cleanup() }, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return RawSubmission{}, noop, err
		}
		return RawSubmission{Fields: flatten(r.PostForm)}, noop, nil

	case "application/json":
		fields := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return RawSubmission{}, noop, err
			}
			return RawSubmission{}, noop, errUnsupportedBody
		}
		return RawSubmission{Fields: fields}, noop, nil
	}
	return RawSubmission{}, noop, errUnsupportedBody
}

// openAttachment opens the first uploaded file. Browsers send an empty part
// when no file was chosen; that counts as no attachment.
func openAttachment(headers []*multipart.FileHeader) (*files.Attachment, func(), error) {
	noop := func() {}
	if len(headers) == 0 {
		return nil, noop, nil
	}
	fh := headers[0]
	if fh.Filename == "" && fh.Size == 0 {
		return nil, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &files.Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	}, func() { _ = f.Close() }, nil
}

// flatten keeps the first value of each field.
func flatten(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func writeResult(w http.ResponseWriter, res Result) {
	body := submitResponse{Success: res.Success}
	if res.Success {
		body.Message = res.Message
		body.LeadID = res.LeadID
	} else {
		body.Error = res.Message
		body.Code = res.Code
		body.Errors = res.FieldErrors
	}
	writeJSON(w, res.HTTPStatus(), body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MethodNotAllowed answers non-POST requests on the submission route.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", strings.Join([]string{http.MethodPost, http.MethodOptions}, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, submitResponse{Error: "Method not allowed"})
}
