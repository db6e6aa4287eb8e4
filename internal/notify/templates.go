package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

var weekdaysES = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var monthsES = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Renderer builds the Spanish message bodies and the branded HTML email.
// Dates are shown in the clinic timezone.
type Renderer struct {
	Brand   string
	Address string
	Loc     *time.Location
}

func NewRenderer(brand, address string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Brand: brand, Address: address, Loc: loc}
}

// FormatDate renders t like "lunes, 10 de marzo de 2025".
func (r *Renderer) FormatDate(t time.Time) string {
	t = t.In(r.Loc)
	return fmt.Sprintf("%s, %d de %s de %d", weekdaysES[t.Weekday()], t.Day(), monthsES[t.Month()-1], t.Year())
}

// FormatDateTime renders t like "lunes, 10 de marzo de 2025, 09:30".
func (r *Renderer) FormatDateTime(t time.Time) string {
	return r.FormatDate(t) + ", " + t.In(r.Loc).Format("15:04")
}

func (r *Renderer) Subject(kind model.Kind) string {
	switch kind {
	case model.KindReminderAppointment:
		return "Recordatorio de Cita - " + r.Brand
	case model.KindWarrantyExpiry:
		return "Vencimiento de Garantía - " + r.Brand
	case model.KindCampaignAnnouncement:
		return "Nuevo Operativo Oftalmológico - " + r.Brand
	default:
		return "Notificación de " + r.Brand
	}
}

func (r *Renderer) AppointmentReminder(clientName string, at time.Time, location *string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hola %s,\n\nTe recordamos que tienes una cita agendada para:\nFecha y Hora: %s", clientName, r.FormatDateTime(at))
	if location != nil && strings.TrimSpace(*location) != "" {
		fmt.Fprintf(&sb, "\nLugar: %s", *location)
	}
	sb.WriteString("\n\nPor favor confirma tu asistencia o contáctanos si necesitas reprogramar.")
	sb.WriteString(r.signature())
	return sb.String()
}

func (r *Renderer) WarrantyExpiry(clientName, product string, end time.Time) string {
	return fmt.Sprintf(
		"Hola %s,\n\nTu garantía para el producto \"%s\" vencerá el %s.\n\n"+
			"Si necesitas hacer uso de tu garantía o tienes alguna consulta, contáctanos antes de la fecha de vencimiento.",
		clientName, product, r.FormatDate(end),
	) + r.signature()
}

func (r *Renderer) CampaignAnnouncement(clientName, campaign string, date time.Time, location *string) string {
	place := ""
	if location != nil {
		place = *location
	}
	return fmt.Sprintf(
		"Hola %s,\n\nTenemos un nuevo operativo oftalmológico disponible:\n\n%s\nFecha: %s\nLugar: %s\n\n"+
			"Si estás interesado, contáctanos para agendar tu cita.",
		clientName, campaign, r.FormatDate(date), place,
	) + r.signature()
}

func (r *Renderer) signature() string {
	return "\n\nSaludos,\nEquipo " + r.Brand
}

// SMSText is what goes out over SMS: "subject: message".
func SMSText(subject, message string) string {
	return subject + ": " + message
}

var emailTmpl = template.Must(template.New("email").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: linear-gradient(135deg, #065f46 0%, #047857 100%); padding: 2rem; text-align: center;">
    <h1 style="color: white; margin: 0;">{{.Brand}}</h1>
  </div>
  <div style="padding: 2rem; background: #f9fafb;">
    <h2 style="color: #065f46; margin-top: 0;">{{.Subject}}</h2>
    <p style="color: #374151; line-height: 1.6; font-size: 1rem;">
      {{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}
    </p>
  </div>
  <div style="padding: 1rem; background: #e5e7eb; text-align: center; font-size: 0.875rem; color: #6b7280;">
    {{if .Address}}<p style="margin: 0;">{{.Address}}</p>{{end}}
    <p style="margin: 0.5rem 0 0;">© {{.Year}} {{.Brand}}</p>
  </div>
</div>
`))

// EmailHTML wraps a plain-text message in the branded layout. Message text is
// escaped; newlines become <br>.
func (r *Renderer) EmailHTML(subject, message string, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct {
		Brand, Address, Subject string
		Lines                   []string
		Year                    int
	}{
		Brand:   r.Brand,
		Address: r.Address,
		Subject: subject,
		Lines:   strings.Split(message, "\n"),
		Year:    now.In(r.Loc).Year(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
