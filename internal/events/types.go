package events

import (
	"time"

	"github.com/wolfman30/lead-intake/internal/leads"
)

// LeadCreatedV1 is emitted once a lead has been persisted.
type LeadCreatedV1 struct {
	LeadID        string    `json:"lead_id"`
	CreatedAt     time.Time `json:"created_at"`
	Name          string    `json:"name"`
	Company       string    `json:"company,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Channel       string    `json:"channel"`
	Service       string    `json:"service"`
	HasAttachment bool      `json:"has_attachment"`
	SourcePage    string    `json:"source_page,omitempty"`
	UTMSource     string    `json:"utm_source,omitempty"`
	UTMMedium     string    `json:"utm_medium,omitempty"`
	UTMCampaign   string    `json:"utm_campaign,omitempty"`
	Location      string    `json:"location,omitempty"`
}

// EventType implements CanonicalEvent.
func (LeadCreatedV1) EventType() string { return "leads.lead.created.v1" }

// NewLeadCreated projects a stored record into the public event shape.
func NewLeadCreated(rec *leads.Record, location string) LeadCreatedV1 {
	return LeadCreatedV1{
		LeadID:        rec.ID,
		CreatedAt:     rec.CreatedAt,
		Name:          rec.Name,
		Company:       rec.Company,
		Email:         rec.Email,
		Phone:         rec.Phone,
		Channel:       rec.Channel,
		Service:       rec.Service,
		HasAttachment: rec.HasAttachment(),
		SourcePage:    rec.SourcePage,
		UTMSource:     rec.UTMSource,
		UTMMedium:     rec.UTMMedium,
		UTMCampaign:   rec.UTMCampaign,
		Location:      location,
	}
}
