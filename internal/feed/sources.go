// Package feed simulates the operational sources that raise alerts: hospital
// emergency room load and warehouse stock levels.
package feed

import (
	"fmt"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/escalation"
)

// IGDStatus is the load status of a hospital emergency room.
type IGDStatus string

// IGD statuses.
const (
	IGDNormal IGDStatus = "Normal"
	IGDSibuk  IGDStatus = "Sibuk"
	IGDKritis IGDStatus = "Kritis"
)

// StockStatus is the supply status of a stock item.
type StockStatus string

// Stock statuses.
const (
	StockAman           StockStatus = "Aman"
	StockPerluPerhatian StockStatus = "Perlu Perhatian"
	StockKritis         StockStatus = "Kritis"
)

// Hospital is the bed capacity of one hospital.
type Hospital struct {
	Name          string    `json:"name"`
	BedsAvailable int       `json:"beds_available"`
	BedsTotal     int       `json:"beds_total"`
	IGD           IGDStatus `json:"igd_status"`
}

// StockItem is the stock level of one supply item.
type StockItem struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Unit      string      `json:"unit"`
	Stock     int         `json:"stock"`
	Threshold int         `json:"threshold"`
	Status    StockStatus `json:"status"`
}

// IGDStatusFor derives the emergency room status from bed usage.
func IGDStatusFor(available, total int) IGDStatus {
	if total <= 0 {
		return IGDNormal
	}
	usage := float64(total-available) / float64(total) * 100
	switch {
	case usage >= 85:
		return IGDKritis
	case usage >= 60:
		return IGDSibuk
	default:
		return IGDNormal
	}
}

// StockStatusFor derives the stock status from the stock level and its threshold.
func StockStatusFor(stock, threshold int) StockStatus {
	switch {
	case stock <= threshold:
		return StockKritis
	case stock <= 2*threshold:
		return StockPerluPerhatian
	default:
		return StockAman
	}
}

// HospitalAlert returns the alert raised when a hospital enters Kritis.
// Staying in Kritis raises nothing.
func HospitalAlert(prev, next Hospital) (escalation.IngestInput, bool) {
	if prev.IGD == IGDKritis || next.IGD != IGDKritis {
		return escalation.IngestInput{}, false
	}
	return escalation.IngestInput{
		Priority:    domain.PriorityTinggi,
		Title:       "Status Kritis: " + next.Name,
		Description: "Kapasitas IGD & tempat tidur sangat terbatas.",
		Location:    next.Name,
		Time:        "Baru saja",
		ActionLabel: "Aktifkan protokol IGD",
		Category:    domain.ModuleMedicalServices,
	}, true
}

// StockAlert returns the alert raised when a stock item enters Kritis.
func StockAlert(prev, next StockItem) (escalation.IngestInput, bool) {
	if prev.Status == StockKritis || next.Status != StockKritis {
		return escalation.IngestInput{}, false
	}
	return escalation.IngestInput{
		Priority:    domain.PriorityTinggi,
		Title:       "Stok Kritis: " + next.Name,
		Description: fmt.Sprintf("Stok tersisa %d %s. Segera pesan ulang.", next.Stock, next.Unit),
		Location:    "Gudang Pusat",
		Time:        "Baru saja",
		ActionLabel: "Pesan ulang stok",
		Category:    domain.ModuleLogistics,
	}, true
}
