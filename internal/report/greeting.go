package report

import (
	"strings"
	"time"
)

// unixEpochOrdinal is the proleptic Gregorian ordinal of 1970-01-01, with 0001-01-01 as 1.
const unixEpochOrdinal = 719163

var greetings = []string{
	"🌞 Buenos días equipo, arrancamos este {dia} con InvestX. Mercados listos, foco y disciplina.",
	"📊 ¡Buenos días traders! Hoy es {dia}. En InvestX seguimos marcando niveles clave.",
	"☕ Café en mano y gráficos en pantalla: así empieza el {dia} en InvestX.",
	"🚀 Buenos días 👋. Recuerda: menos teoría, más acción. Filosofía InvestX.",
	"📈 Arrancamos este {dia} con setups claros. La oportunidad está ahí, InvestX te la acerca.",
	"🔔 Buenos días desde InvestX. Mercado abierto, cabeza fría y estrategia por delante.",
	"⚡ El trading nunca fue tan simple: buenos días y feliz {dia} con InvestX.",
	"💡 Buenos días. Hoy en InvestX toca constancia y paciencia, claves para ganar.",
}

var weekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miércoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sábado",
}

// DayOrdinal returns the ordinal of t's calendar date in t's location.
func DayOrdinal(t time.Time) int64 {
	y, m, d := t.Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	return days + unixEpochOrdinal
}

// GreetingIndex picks one of n templates from the local date and 3-hour bucket:
// (dayOrdinal*17 + isoWeek*7 + hour/3) mod n.
func GreetingIndex(t time.Time, n int) int {
	if n <= 0 {
		return 0
	}
	_, week := t.ISOWeek()
	v := DayOrdinal(t)*17 + int64(week)*7 + int64(t.Hour()/3)
	return int(v % int64(n))
}

// Greeting returns the greeting for t, with t's weekday filled in.
func Greeting(t time.Time) string {
	tmpl := greetings[GreetingIndex(t, len(greetings))]
	return strings.ReplaceAll(tmpl, "{dia}", weekdays[t.Weekday()])
}

// GreetingCount is the number of greeting templates.
func GreetingCount() int { return len(greetings) }
