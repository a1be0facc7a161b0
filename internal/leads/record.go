package leads

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Preferred confirmation channels.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// StatusNew is the pipeline status every captured lead starts with.
const StatusNew = "Nuevo"

// TimestampLayout renders CreatedAt as DD/MM/YYYY HH:mm:ss.
const TimestampLayout = "02/01/2006 15:04:05"

// Record is the durable unit written for each accepted submission.
type Record struct {
	ID        string    `json:"id" dynamodbav:"leadId"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"createdAt"`

	Name         string `json:"nombre" dynamodbav:"name"`
	Company      string `json:"empresa" dynamodbav:"company"`
	Email        string `json:"email" dynamodbav:"email"`
	Phone        string `json:"telefono_whatsapp" dynamodbav:"phone"`
	Channel      string `json:"canal_preferido" dynamodbav:"channel"`
	Service      string `json:"servicio_interes" dynamodbav:"service"`
	Quantity     string `json:"cantidad" dynamodbav:"quantity"`
	RequiredDate string `json:"fecha_requerida" dynamodbav:"requiredDate"`
	Description  string `json:"descripcion" dynamodbav:"description"`

	AttachmentURL  string `json:"archivo_url,omitempty" dynamodbav:"attachmentUrl,omitempty"`
	AttachmentName string `json:"archivo_nombre,omitempty" dynamodbav:"attachmentName,omitempty"`

	SourcePage  string `json:"pagina_origen" dynamodbav:"sourcePage"`
	UTMSource   string `json:"utm_source" dynamodbav:"utmSource"`
	UTMMedium   string `json:"utm_medium" dynamodbav:"utmMedium"`
	UTMCampaign string `json:"utm_campaign" dynamodbav:"utmCampaign"`
	IP          string `json:"ip" dynamodbav:"ip"`
	UserAgent   string `json:"user_agent" dynamodbav:"userAgent"`

	Status        string `json:"estado" dynamodbav:"status"`
	InternalNotes string `json:"notas_internas,omitempty" dynamodbav:"internalNotes,omitempty"`
}

// Timestamp formats CreatedAt in the record's own location.
func (r *Record) Timestamp() string {
	return r.CreatedAt.Format(TimestampLayout)
}

// HasAttachment reports whether a stored attachment reference is present.
func (r *Record) HasAttachment() bool {
	return r.AttachmentURL != ""
}

// AppendResult is what a store hands back after a successful append.
type AppendResult struct {
	LeadID string
	// Location points operators at the stored lead (sheet URL, console link).
	// May be empty.
	Location string
}

// Store persists lead records. Append is called once per submission and
// must not retry internally.
type Store interface {
	Append(ctx context.Context, rec *Record) (AppendResult, error)
	AppendNotes(ctx context.Context, leadID, notes string) error
}

// JoinNotes concatenates non-empty note fragments with the separator used in
// the internal notes column.
func JoinNotes(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewID returns an identifier shaped LEAD-<unix millis>-<4 base36 chars>.
func NewID(now time.Time) string {
	var suffix [4]byte
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			suffix[i] = idAlphabet[now.UnixNano()%int64(len(idAlphabet))]
			continue
		}
		suffix[i] = idAlphabet[n.Int64()]
	}
	return fmt.Sprintf("LEAD-%d-%s", now.UnixMilli(), suffix[:])
}
