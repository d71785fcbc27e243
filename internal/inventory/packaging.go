// Package inventory classifies packaging and label stock against reorder
// levels.
package inventory

import (
	"sort"

	"production_queue/internal/model"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Critical   Status = "critical"
	Low        Status = "low"
	Sufficient Status = "sufficient"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// nearReorder is the band above the reorder level that still raises an info
// alert.
var nearReorder = decimal.RequireFromString("1.2")

// PackagingStatus classifies one material.
func PackagingStatus(m model.PackagingMaterial) Status {
	switch {
	case !m.CurrentStock.IsPositive():
		return Critical
	case m.CurrentStock.LessThanOrEqual(m.ReorderLevel):
		return Low
	default:
		return Sufficient
	}
}

// Alert is one packaging material that needs attention.
type Alert struct {
	MaterialID   string          `json:"material_id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Unit         string          `json:"unit"`
	Severity     Severity        `json:"severity"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Shortage     decimal.Decimal `json:"shortage"`
	VendorName   string          `json:"vendor_name,omitempty"`
}

// PackagingAlerts returns critical, warning and info alerts, most severe
// first and then by name.
func PackagingAlerts(materials []model.PackagingMaterial) []Alert {
	var out []Alert
	for _, m := range materials {
		var sev Severity
		switch PackagingStatus(m) {
		case Critical:
			sev = SeverityCritical
		case Low:
			sev = SeverityWarning
		default:
			if !m.ReorderLevel.IsPositive() || m.CurrentStock.GreaterThan(m.ReorderLevel.Mul(nearReorder)) {
				continue
			}
			sev = SeverityInfo
		}
		a := Alert{
			MaterialID:   m.ID,
			Name:         m.Name,
			Type:         m.Type,
			Unit:         m.Unit,
			Severity:     sev,
			CurrentStock: m.CurrentStock,
			ReorderLevel: m.ReorderLevel,
			Shortage:     decimal.Max(decimal.Zero, m.ReorderLevel.Sub(m.CurrentStock)),
		}
		if m.Vendor != nil {
			a.VendorName = m.Vendor.Name
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.rank(), out[j].Severity.rank(); ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
