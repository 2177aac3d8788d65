package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/escalation"
)

// DemoHospitals returns the hospitals of the demo deployment.
func DemoHospitals() []Hospital {
	return []Hospital{
		{Name: "RSPAU Hardjolukito", BedsAvailable: 32, BedsTotal: 150, IGD: IGDNormal},
		{Name: "RS Lanud Halim", BedsAvailable: 18, BedsTotal: 120, IGD: IGDSibuk},
		{Name: "RS Lanud Adisutjipto", BedsAvailable: 8, BedsTotal: 80, IGD: IGDKritis},
		{Name: "RS Lanud Husein S.", BedsAvailable: 25, BedsTotal: 75, IGD: IGDNormal},
		{Name: "RS Lanud Hasanuddin", BedsAvailable: 25, BedsTotal: 85, IGD: IGDNormal},
	}
}

// DemoStock returns the stock items of the demo deployment.
func DemoStock() []StockItem {
	items := []StockItem{
		{ID: "OB-001", Name: "Paracetamol 500mg", Unit: "box", Stock: 850, Threshold: 200},
		{ID: "OB-002", Name: "Amoxicillin 500mg", Unit: "strip", Stock: 95, Threshold: 100},
		{ID: "AK-001", Name: "Set Infus", Unit: "pcs", Stock: 450, Threshold: 100},
		{ID: "AK-002", Name: "Oksigen Portabel", Unit: "unit", Stock: 25, Threshold: 30},
		{ID: "BM-001", Name: "Sarung Tangan Steril (M)", Unit: "box", Stock: 125, Threshold: 100},
		{ID: "APD-001", Name: "Masker N95", Unit: "pcs", Stock: 1200, Threshold: 500},
		{ID: "OB-003", Name: "Cairan Infus RL", Unit: "kantong", Stock: 45, Threshold: 50},
	}
	for i := range items {
		items[i].Status = StockStatusFor(items[i].Stock, items[i].Threshold)
	}
	return items
}

// DemoNotifications returns the demo notifications, newest first.
func DemoNotifications() []escalation.IngestInput {
	return []escalation.IngestInput{
		{
			Priority:    domain.PriorityTinggi,
			Title:       "Kebutuhan Darah Segera",
			Time:        "15 menit yang lalu",
			Description: "Kebutuhan darah golongan O- untuk kasus operasi darurat",
			Location:    "RSPAU Hardjolukito",
			ActionLabel: "Aktifkan kode donor",
		},
		{
			Priority:    domain.PrioritySedang,
			Title:       "Ruang ICU Hampir Penuh",
			Time:        "45 menit yang lalu",
			Description: "Kapasitas ruang ICU tersisa 2 dari 10 tempat tidur",
			Location:    "RS Lanud Halim",
			ActionLabel: "Alihkan pasien prioritas",
		},
		{
			Priority:    domain.PriorityRendah,
			Title:       "Pengiriman Alkes Tiba",
			Time:        "1 jam yang lalu",
			Description: "Pengiriman alat kesehatan dari Depot Pusat telah tiba",
			Location:    "RS Lanud Adisutjipto",
			ActionLabel: "Konfirmasi penerimaan",
		},
		{
			Priority:    domain.PrioritySedang,
			Title:       "Jadwal Pemeliharaan Alat",
			Time:        "3 jam yang lalu",
			Description: "Pengingat: Jadwal pemeliharaan X-Ray portable hari ini",
			Location:    "RS Lanud Halim",
			ActionLabel: "Jadwalkan teknisi",
		},
	}
}

// DemoTasks returns the task board of the demo deployment.
func DemoTasks() map[domain.TaskColumn][]domain.Task {
	return map[domain.TaskColumn][]domain.Task{
		domain.TaskColumnNew: {
			{ID: "T1", Title: "Siapkan laporan stok bulanan", Description: "Kompilasi data dari semua RS", Assignee: "Staf Logistik", DueDate: "2025-05-30"},
			{ID: "T2", Title: "Jadwalkan pemeliharaan X-Ray", Description: "Hubungi vendor teknis", Assignee: "Tim Alkes", DueDate: "2025-06-02"},
		},
		domain.TaskColumnInProgress: {
			{ID: "T3", Title: "Verifikasi data pasien", Description: "Cross-check data baru dari RSPAU", Assignee: "Admin Medis", DueDate: "2025-05-28"},
		},
		domain.TaskColumnDone: {
			{ID: "T4", Title: "Pesan ulang reagen lab", Description: "Pesanan untuk kebutuhan bulan Juni", Assignee: "Lab Pusat", DueDate: "2025-05-25"},
		},
	}
}

// SeedDemo ingests the demo notifications so that the feed ends up in the
// same newest-first order.
func SeedDemo(ctx context.Context, ingester Ingester) error {
	demo := DemoNotifications()
	for i := len(demo) - 1; i >= 0; i-- {
		if _, err := ingester.Ingest(ctx, demo[i]); err != nil {
			return fmt.Errorf("seed %q: %w", demo[i].Title, err)
		}
	}
	slog.Info("demo notifications seeded", "count", len(demo))
	return nil
}
