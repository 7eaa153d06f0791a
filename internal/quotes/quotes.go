// Package quotes computes quote ("orçamento") totals. Amounts are kept in
// integer cents; the float reais used on the wire are converted at the edges.
package quotes

import (
	"fmt"
	"math"
	"strings"

	"github.com/wolfman30/odonto-crm/internal/crmapi"
)

// Discount types.
const (
	DiscountAbsolute = "abs"
	DiscountPercent  = "pct"
)

// Defaults applied to a new quote.
const (
	DefaultStatus  = "Rascunho"
	DefaultChannel = "WhatsApp"
)

// Discount is either an absolute amount in reais or a percentage of the subtotal.
type Discount struct {
	Type  string
	Value float64
}

// Line is a priced quote item.
type Line struct {
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	UnitCents  int64  `json:"unitCents"`
	TotalCents int64  `json:"totalCents"`
}

// Totals is the result of Calculate.
type Totals struct {
	Lines         []Line `json:"lines"`
	SubtotalCents int64  `json:"subtotalCents"`
	DiscountCents int64  `json:"discountCents"`
	TotalCents    int64  `json:"totalCents"`
}

// Subtotal returns the subtotal in reais.
func (t Totals) Subtotal() float64 { return FromCents(t.SubtotalCents) }

// Total returns the total in reais.
func (t Totals) Total() float64 { return FromCents(t.TotalCents) }

// ToCents rounds a reais amount to cents.
func ToCents(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v * 100))
}

// FromCents converts cents back to reais.
func FromCents(c int64) float64 { return float64(c) / 100 }

// Calculate sums the items and applies the discount. Items with a
// non-positive quantity are ignored; the total never drops below zero.
func Calculate(items []crmapi.QuoteItem, d Discount) Totals {
	t := Totals{Lines: make([]Line, 0, len(items))}
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		unit := ToCents(it.Unit)
		line := Line{
			Name:       it.Name,
			Qty:        it.Qty,
			UnitCents:  unit,
			TotalCents: unit * int64(it.Qty),
		}
		t.Lines = append(t.Lines, line)
		t.SubtotalCents += line.TotalCents
	}

	switch normalizeType(d.Type) {
	case DiscountPercent:
		pct := math.Max(0, math.Min(d.Value, 100))
		t.DiscountCents = int64(math.Round(float64(t.SubtotalCents) * pct / 100))
	default:
		t.DiscountCents = ToCents(math.Max(0, d.Value))
	}

	t.TotalCents = t.SubtotalCents - t.DiscountCents
	if t.TotalCents < 0 {
		t.TotalCents = 0
	}
	return t
}

// Prepare fills quote defaults, drops empty items and stamps the computed
// subtotal and total on req.
func Prepare(req crmapi.QuoteRequest) (crmapi.QuoteRequest, Totals, error) {
	req.Patient = strings.TrimSpace(req.Patient)
	if req.Status == "" {
		req.Status = DefaultStatus
	}
	if req.Channel == "" {
		req.Channel = DefaultChannel
	}
	req.DiscountType = normalizeType(req.DiscountType)

	items := make([]crmapi.QuoteItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Qty > 0 && strings.TrimSpace(it.Name) != "" {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return req, Totals{}, fmt.Errorf("quotes: at least one item with quantity is required")
	}
	req.Items = items

	totals := Calculate(items, Discount{Type: req.DiscountType, Value: req.DiscountValue})
	req.Subtotal = totals.Subtotal()
	req.Total = totals.Total()
	return req, totals, nil
}

func normalizeType(t string) string {
	if strings.EqualFold(strings.TrimSpace(t), DiscountPercent) {
		return DiscountPercent
	}
	return DiscountAbsolute
}
