package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

func santiago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	require.NoError(t, err)
	return loc
}

func TestRenderer_FormatDate(t *testing.T) {
	r := NewRenderer("Dannig Óptica", "", santiago(t))

	// 2025-03-10 12:30 UTC is 09:30 in Santiago (UTC-3 during DST)
	at := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "lunes, 10 de marzo de 2025", r.FormatDate(at))
	assert.Equal(t, "lunes, 10 de marzo de 2025, 09:30", r.FormatDateTime(at))

	// local date differs from the UTC date late at night
	late := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "lunes, 30 de junio de 2025", r.FormatDate(late))
}

func TestRenderer_Subject(t *testing.T) {
	r := NewRenderer("Dannig Óptica", "", time.UTC)
	assert.Equal(t, "Recordatorio de Cita - Dannig Óptica", r.Subject(model.KindReminderAppointment))
	assert.Equal(t, "Vencimiento de Garantía - Dannig Óptica", r.Subject(model.KindWarrantyExpiry))
	assert.Equal(t, "Nuevo Operativo Oftalmológico - Dannig Óptica", r.Subject(model.KindCampaignAnnouncement))
	assert.Equal(t, "Notificación de Dannig Óptica", r.Subject(model.Kind("Other")))
}

func TestRenderer_Messages(t *testing.T) {
	r := NewRenderer("Dannig Óptica", "", time.UTC)
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	place := "Plaza de Maipú"

	msg := r.AppointmentReminder("Ana", at, &place)
	assert.True(t, strings.HasPrefix(msg, "Hola Ana,\n\nTe recordamos"))
	assert.Contains(t, msg, "Fecha y Hora: lunes, 10 de marzo de 2025, 09:30\nLugar: Plaza de Maipú")
	assert.True(t, strings.HasSuffix(msg, "Saludos,\nEquipo Dannig Óptica"))

	noPlace := r.AppointmentReminder("Ana", at, nil)
	assert.NotContains(t, noPlace, "Lugar:")

	w := r.WarrantyExpiry("Luis", "Lentes Ray-Ban", at)
	assert.Contains(t, w, `Tu garantía para el producto "Lentes Ray-Ban" vencerá el lunes, 10 de marzo de 2025.`)

	c := r.CampaignAnnouncement("Ana", "Operativo Maipú", at, &place)
	assert.Contains(t, c, "Operativo Maipú\nFecha: lunes, 10 de marzo de 2025\nLugar: Plaza de Maipú")
}

func TestRenderer_EmailHTML(t *testing.T) {
	r := NewRenderer("Dannig Óptica", "Av. Pajaritos #3195", time.UTC)

	html, err := r.EmailHTML("Asunto", "línea 1\n<b>línea 2</b>", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, html, "línea 1<br>&lt;b&gt;línea 2&lt;/b&gt;")
	assert.Contains(t, html, "© 2025 Dannig Óptica")
	assert.Contains(t, html, "Av. Pajaritos #3195")
	assert.Contains(t, html, "<h2 style=\"color: #065f46; margin-top: 0;\">Asunto</h2>")
}

func TestSMSText(t *testing.T) {
	assert.Equal(t, "Recordatorio: hola", SMSText("Recordatorio", "hola"))
}
