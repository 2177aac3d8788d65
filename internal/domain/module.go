package domain

// TargetModule names an operational module of the dashboard that an alert
// or incident can be routed to.
type TargetModule string

// Routing targets.
const (
	ModuleMedicalServices TargetModule = "Pelayanan Medis"
	ModuleLogistics       TargetModule = "Logistik & Stok"
	ModuleDistribution    TargetModule = "Distribusi"
	ModuleSchedule        TargetModule = "Jadwal & Tugas"
)

// IsValid checks if the module is a known routing target.
func (m TargetModule) IsValid() bool {
	switch m {
	case ModuleMedicalServices, ModuleLogistics, ModuleDistribution, ModuleSchedule:
		return true
	}
	return false
}
