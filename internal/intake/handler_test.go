package intake

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lead-intake/internal/ratelimit"
)

type decodedResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	LeadID  string            `json:"leadId"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Errors  map[string]string `json:"errors"`
}

func newTestHandler(h *harness, guard ratelimit.Guard) *Handler {
	svc := NewService(guard, h.orch, ServiceConfig{RateLimitMax: 3, RateLimitWindow: 15 * time.Minute}, nil, nil)
	return NewHandler(svc, nil)
}

func serve(t *testing.T, handler *Handler, req *http.Request) (*httptest.ResponseRecorder, decodedResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)
	var body decodedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec, body
}

func multipartRequest(t *testing.T, fields map[string]any, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v.(string)))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+AttachmentField+`"; filename="`+filename+`"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/contact", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_MultipartWithAttachment(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{})

	req := multipartRequest(t, validFields(), "foto pieza.png", "image/png", []byte("png-bytes"))
	req.Header.Set("User-Agent", "form-test")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, MessageSuccess, body.Message)
	assert.Equal(t, "LEAD-1772649005000-AB12", body.LeadID)

	assert.Equal(t, 1, h.files.calls)
	assert.Equal(t, "png-bytes", h.files.body)
	require.Len(t, h.store.appended, 1)
	stored := h.store.appended[0]
	assert.Equal(t, "TEMP-1772649005000_foto_pieza.png", stored.AttachmentName)
	assert.Equal(t, "203.0.113.7", stored.IP)
	assert.Equal(t, "form-test", stored.UserAgent)
}

func TestHandler_MultipartEmptyFilePartIsNoAttachment(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range validFields() {
		require.NoError(t, mw.WriteField(k, v.(string)))
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+AttachmentField+`"; filename=""`)
	hdr.Set("Content-Type", "application/octet-stream")
	_, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/contact", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, 0, h.files.calls)
}

func TestHandler_OversizeAttachment(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{})

	content := bytes.Repeat([]byte{'a'}, MaxAttachmentSize+1)
	req := multipartRequest(t, validFields(), "grande.jpg", "image/jpeg", content)
	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, string(CodeInvalidAttachment), body.Code)
	assert.Equal(t, ReasonAttachmentTooLarge, body.Error)
	assertNoCollaborators(t, h)
}

func TestHandler_BodyOverReaderLimit(t *testing.T) {
	h := newHarness()
	guard := &fakeGuard{}
	handler := newTestHandler(h, guard)

	content := bytes.Repeat([]byte{'a'}, 12<<20)
	require.Greater(t, len(content), maxBodySize)
	req := multipartRequest(t, validFields(), "enorme.pdf", "application/pdf", content)
	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, string(CodeInvalidAttachment), body.Code)
	assert.Equal(t, ReasonAttachmentTooLarge, body.Error)
	assert.Len(t, guard.calls, 1)
	assertNoCollaborators(t, h)
}

func TestHandler_URLEncoded(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{})

	form := url.Values{}
	for k, v := range validFields() {
		form.Set(k, v.(string))
	}
	form.Set(FieldChannel, "message")
	form.Set(FieldPhone, "9 1234 5678")
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	require.Len(t, h.store.appended, 1)
	assert.Equal(t, "whatsapp", h.store.appended[0].Channel)
	assert.Equal(t, "+56912345678", h.store.appended[0].Phone)
	assert.Equal(t, 1, h.messenger.calls)
}

func TestHandler_JSONWithBooleanPolicy(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{})

	fields := validFields()
	fields[FieldPolicy] = true
	payload, err := json.Marshal(fields)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
}

func TestHandler_ValidationErrors(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{})

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"nombre":"","canal_preferido":"fax"}`))
	req.Header.Set("Content-Type", "application/json")

	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MessageValidationFailed, body.Error)
	assert.Equal(t, string(CodeValidationFailed), body.Code)
	assert.Equal(t, ReasonName, body.Errors[FieldName])
	assert.Equal(t, ReasonChannel, body.Errors[FieldChannel])
	assert.Equal(t, ReasonPolicy, body.Errors[FieldPolicy])
	assert.Empty(t, body.LeadID)
}

func TestHandler_RateLimited(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{blocked: true})

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, MessageRateLimited, body.Error)
	assert.Equal(t, string(CodeRateLimited), body.Code)
}

func TestHandler_UnsupportedBody(t *testing.T) {
	h := newHarness()
	handler := newTestHandler(h, &fakeGuard{})

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("hola"))
	req.Header.Set("Content-Type", "text/plain")
	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(CodeInvalidSubmission), body.Code)
	assertNoCollaborators(t, h)
}

func TestHandler_PersistenceFailure(t *testing.T) {
	h := newHarness()
	h.store.appendErr = errBoom
	handler := newTestHandler(h, &fakeGuard{})

	payload, err := json.Marshal(validFields())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec, body := serve(t, handler, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, MessagePersistenceFailed, body.Error)
	assert.Equal(t, 0, h.notifier.internalCalls)
}

func TestHealthAndMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	MethodNotAllowed(rec, httptest.NewRequest(http.MethodGet, "/api/contact", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
	assert.JSONEq(t, `{"success":false,"error":"Method not allowed"}`, rec.Body.String())
}
