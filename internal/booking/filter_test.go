package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/odonto-crm/internal/crmapi"
)

func sampleBookings() []crmapi.Booking {
	return []crmapi.Booking{
		{ID: "1", Title: "Emilane", Desc: "Limpeza", Date: "2025-08-23", Start: "16:46", End: "17:45", Client: "Emilane"},
		{ID: "2", Title: "Agendamento", Desc: "Canal", Date: "2025-08-21", Start: "09:00", End: "10:00", Client: "Bruno"},
		{ID: "3", Title: "Retorno", Desc: "", Date: "2025-10-01", Start: "11:00", End: "12:00", Client: "Carla"},
		{ID: "4", Title: "Antigo", Desc: "", Date: "2025-08-01", Start: "11:00", End: "12:00", Client: "Davi"},
		{ID: "5", Title: "Sem data", Date: "", Client: "Eva"},
	}
}

func ids(list []crmapi.Booking) []string {
	out := []string{}
	for _, b := range list {
		out = append(out, string(b.ID))
	}
	return out
}

func TestFilterBookings(t *testing.T) {
	now := time.Date(2025, 8, 21, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{Range: RangeAll, Now: now}, []string{"1", "2", "3", "4", "5"}},
		{"empty range is all", Filter{Now: now}, []string{"1", "2", "3", "4", "5"}},
		{"unknown range is all", Filter{Range: "week", Now: now}, []string{"1", "2", "3", "4", "5"}},
		{"today", Filter{Range: RangeToday, Now: now}, []string{"2"}},
		{"future 30 days", Filter{Range: RangeFuture, Now: now}, []string{"1", "2"}},
		{"query client", Filter{Query: "EMIL", Now: now}, []string{"1"}},
		{"query description", Filter{Query: "canal", Now: now}, []string{"2"}},
		{"query and range", Filter{Query: "a", Range: RangeFuture, Now: now}, []string{"1", "2"}},
		{"no match", Filter{Query: "zzz", Now: now}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterBookings(sampleBookings(), tt.filter)))
		})
	}
}

func TestFilterBookings_FutureWindowEdge(t *testing.T) {
	now := time.Date(2025, 8, 1, 23, 59, 0, 0, time.UTC)
	list := []crmapi.Booking{
		{ID: "edge", Date: "2025-08-31"},
		{ID: "past-edge", Date: "2025-09-01"},
	}
	assert.Equal(t, []string{"edge"}, ids(FilterBookings(list, Filter{Range: RangeFuture, Now: now})))
}
