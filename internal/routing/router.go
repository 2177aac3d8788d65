// Package routing maps alerts and incidents to the operational module they concern.
package routing

import (
	"strings"

	"github.com/medops/opsdesk/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rule routes text containing any of its keywords to a module.
type Rule struct {
	Keywords []string
	Module   domain.TargetModule
}

// Rules are evaluated in order; the first match wins.
var Rules = []Rule{
	{Keywords: []string{"darah", "icu", "kritis"}, Module: domain.ModuleMedicalServices},
	{Keywords: []string{"stok"}, Module: domain.ModuleLogistics},
	{Keywords: []string{"pengiriman"}, Module: domain.ModuleDistribution},
	{Keywords: []string{"jadwal"}, Module: domain.ModuleSchedule},
}

var lowerID = cases.Lower(language.Indonesian)

// RouteFor classifies free text by keyword. The second return value is false
// when no rule matches, in which case no routing action is available.
func RouteFor(text string) (domain.TargetModule, bool) {
	normalized := lowerID.String(text)

	for _, rule := range Rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(normalized, keyword) {
				return rule.Module, true
			}
		}
	}
	return "", false
}

// ForNotification routes a notification. An explicit category tag wins;
// untagged notifications fall back to keyword routing on the title.
func ForNotification(n domain.Notification) (domain.TargetModule, bool) {
	if n.Category.IsValid() {
		return n.Category, true
	}
	return RouteFor(n.Title)
}

// ForIncident routes an incident the same way as its source notification:
// the category tag copied at creation wins, otherwise the title is matched.
func ForIncident(i domain.Incident) (domain.TargetModule, bool) {
	if i.Category.IsValid() {
		return i.Category, true
	}
	return RouteFor(i.Title)
}
