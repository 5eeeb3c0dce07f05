package when

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func at(y int, mo time.Month, d, h, min int) time.Time {
	return time.Date(y, mo, d, h, min, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantAt  time.Time
		wantMsg string
	}{
		{"in minutes", "in 5 minutes to stretch", now.Add(5 * time.Minute), "stretch"},
		{"in hours short unit", "drink water in 2h", now.Add(2 * time.Hour), "drink water"},
		{"in seconds", "in 30 seconds check the oven", now.Add(30 * time.Second), "check the oven"},
		{"in days", "in 3 days pay rent", now.Add(72 * time.Hour), "pay rent"},
		{"in weeks", "in 1 week renew passport", now.Add(7 * 24 * time.Hour), "renew passport"},
		{"em minutos", "me lembra em 10 minutos de tirar o bolo", now.Add(10 * time.Minute), "tirar o bolo"},
		{"daqui a horas", "daqui a 2 horas buscar as crianças", now.Add(2 * time.Hour), "buscar as crianças"},
		{"semanas", "em 2 semanas dentista", now.Add(14 * 24 * time.Hour), "dentista"},
		{"tomorrow default hour", "tomorrow call mom", at(2026, 3, 3, DefaultHour, 0), "call mom"},
		{"tomorrow at", "remind me tomorrow at 7pm to call mom", at(2026, 3, 3, 19, 0), "call mom"},
		{"tomorrow clock", "tomorrow 08:30 standup", at(2026, 3, 3, 8, 30), "standup"},
		{"amanhã às", "amanhã às 15h reunião", at(2026, 3, 3, 15, 0), "reunião"},
		{"amanha as with minutes", "amanha as 15h30 reunião", at(2026, 3, 3, 15, 30), "reunião"},
		{"today at", "today at 18:00 gym", at(2026, 3, 2, 18, 0), "gym"},
		{"hoje às", "hoje às 21h novela", at(2026, 3, 2, 21, 0), "novela"},
		{"at later today", "at 11:15 meeting", at(2026, 3, 2, 11, 15), "meeting"},
		{"at passed rolls over", "at 9 coffee", at(2026, 3, 3, 9, 0), "coffee"},
		{"às", "às 12h almoço", at(2026, 3, 2, 12, 0), "almoço"},
		{"at am", "at 12am take pills", at(2026, 3, 3, 0, 0), "take pills"},
		{"iso with time", "2026-04-01 14:30 dentist", at(2026, 4, 1, 14, 30), "dentist"},
		{"iso date", "pay taxes 2026-04-30", at(2026, 4, 30, DefaultHour, 0), "pay taxes"},
		{"dmy", "25/12 às 10:00 ceia", at(2026, 12, 25, 10, 0), "ceia"},
		{"dmy passed rolls year", "01/01 fogos", at(2027, 1, 1, DefaultHour, 0), "fogos"},
		{"dmy explicit year", "10/03/27 renovar cnh", at(2027, 3, 10, DefaultHour, 0), "renovar cnh"},
		{"clock before tomorrow", "at 15:30 tomorrow call mom", at(2026, 3, 3, 15, 30), "call mom"},
		{"às before amanhã", "às 15h amanhã reunião", at(2026, 3, 3, 15, 0), "reunião"},
		{"às after amanhã message", "amanhã reunião às 15h", at(2026, 3, 3, 15, 0), "reunião"},
		{"at after tomorrow message", "tomorrow call mom at 3pm", at(2026, 3, 3, 15, 0), "call mom"},
		{"clock before today", "at 18:00 today gym", at(2026, 3, 2, 18, 0), "gym"},
		{"today with later clock", "today gym at 18:00", at(2026, 3, 2, 18, 0), "gym"},
		{"iso with later at", "2026-04-30 pay taxes at 8am", at(2026, 4, 30, 8, 0), "pay taxes"},
		{"dmy with later às", "25/12 ceia às 20h", at(2026, 12, 25, 20, 0), "ceia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.text, now)
			require.True(t, ok)
			assert.Equal(t, tt.wantAt, got.At)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestParseNoTime(t *testing.T) {
	for _, text := range []string{
		"",
		"call mom",
		"today call mom",
		"tomorrowland tickets",
		"31/02 impossible",
		"at 25:00 nope",
		"i was in 3rd place",
	} {
		t.Run(text, func(t *testing.T) {
			_, ok := Parse(text, now)
			assert.False(t, ok)
		})
	}
}

func TestParseExplicitPastDate(t *testing.T) {
	got, ok := Parse("2020-01-01 old", now)
	require.True(t, ok)
	assert.True(t, got.At.Before(now))
}

func TestCleanRest(t *testing.T) {
	assert.Equal(t, "", cleanRest("  remind me  "))
	assert.Equal(t, "water the plants", cleanRest("remind me to water the plants."))
	assert.Equal(t, "pagar o boleto", cleanRest("me lembre de pagar o boleto"))
	assert.Equal(t, "Total", cleanRest("Total"))
}

func TestUnitDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"s":        time.Second,
		"segundos": time.Second,
		"m":        time.Minute,
		"minutos":  time.Minute,
		"h":        time.Hour,
		"horas":    time.Hour,
		"d":        24 * time.Hour,
		"dias":     24 * time.Hour,
		"w":        7 * 24 * time.Hour,
		"semana":   7 * 24 * time.Hour,
	}
	for unit, want := range tests {
		assert.Equal(t, want, unitDuration(unit, 1), unit)
	}
}
