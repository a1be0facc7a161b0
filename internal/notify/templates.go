package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/wolfman30/lead-intake/internal/leads"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type leadView struct {
	Lead             *leads.Record
	Brand            string
	Location         string
	Timestamp        string
	ChannelLabel     string
	WhatsAppLink     string
	DescriptionLines []string
}

func newLeadView(rec *leads.Record, brand, location string) leadView {
	view := leadView{
		Lead:             rec,
		Brand:            brand,
		Location:         location,
		Timestamp:        rec.Timestamp(),
		ChannelLabel:     channelLabel(rec.Channel),
		DescriptionLines: strings.Split(rec.Description, "\n"),
	}
	if rec.Phone != "" {
		view.WhatsAppLink = "https://wa.me/" + strings.TrimPrefix(rec.Phone, "+")
	}
	return view
}

func channelLabel(channel string) string {
	if channel == leads.ChannelEmail {
		return "Email"
	}
	return "WhatsApp"
}

func renderHTML(name string, view leadView) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func internalText(view leadView) string {
	var b strings.Builder
	rec := view.Lead
	fmt.Fprintf(&b, "Nuevo contacto web (%s)\n\n", rec.ID)
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Servicio", rec.Service)
	line("Nombre", rec.Name)
	line("Empresa", rec.Company)
	line("Canal preferido", view.ChannelLabel)
	line("Email", rec.Email)
	line("WhatsApp", rec.Phone)
	line("Cantidad", rec.Quantity)
	line("Fecha requerida", rec.RequiredDate)
	line("Archivo", rec.AttachmentURL)
	line("Página de origen", rec.SourcePage)
	line("Fecha/Hora", view.Timestamp)
	fmt.Fprintf(&b, "\n%s\n", rec.Description)
	if view.Location != "" {
		fmt.Fprintf(&b, "\nRegistro: %s\n", view.Location)
	}
	return b.String()
}

func confirmationText(view leadView) string {
	return fmt.Sprintf("Hola %s,\n\nHemos recibido tu solicitud sobre %s. Nuestro equipo la revisará y te contactaremos pronto.\n\nEquipo %s\n",
		view.Lead.Name, view.Lead.Service, view.Brand)
}
