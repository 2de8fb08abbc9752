// Package integrity derives a run's integrity verdict from its recorded
// metadata. Evaluation is pure: it never touches the store or the
// filesystem and is defined for every field combination.
package integrity

import (
	"strings"

	"github.com/animus-labs/aigov-dashboard/internal/domain"
)

const (
	ModeCI   = "ci"
	ModeProd = "prod"

	StatusValid   = "valid"
	StatusInvalid = "invalid"

	// Unset is the display label for an empty mode or status. It never
	// matches a recognized value.
	Unset = "unset"
)

// Verdict is built fresh for every read of a run.
type Verdict struct {
	Mode                string `json:"mode"`
	Status              string `json:"status"`
	ModeAllowed         bool   `json:"modeAllowed"`
	BundleHashPresent   bool   `json:"bundleHashPresent"`
	EvidenceHashPresent bool   `json:"evidenceHashPresent"`
	ReportHashPresent   bool   `json:"reportHashPresent"`
	ClosedSet           bool   `json:"closedSet"`
	ProdGateOK          bool   `json:"prodGateOk"`
}

func Evaluate(run domain.Run) Verdict {
	mode := normalize(run.Mode)
	status := normalize(run.Status)
	return Verdict{
		Mode:                label(mode),
		Status:              label(status),
		ModeAllowed:         mode == ModeCI || mode == ModeProd,
		BundleHashPresent:   HashPresent(run.BundleHash),
		EvidenceHashPresent: HashPresent(run.EvidenceHash),
		ReportHashPresent:   HashPresent(run.ReportHash),
		ClosedSet:           HashPresent(run.ClosedAt),
		ProdGateOK:          mode != ModeProd || status == StatusValid,
	}
}

// HashPresent reports whether an optional column carries a non-blank value.
func HashPresent(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func label(normalized string) string {
	if normalized == "" {
		return Unset
	}
	return normalized
}

// Check is one row of the integrity table.
type Check struct {
	Label  string `json:"label"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Checks lists the six verdict checks in display order.
func (v Verdict) Checks() []Check {
	return []Check{
		{Label: "Mode allowed", OK: v.ModeAllowed, Detail: pick(v.ModeAllowed, "ci or prod", "unexpected")},
		{Label: "Bundle hash present", OK: v.BundleHashPresent, Detail: pick(v.BundleHashPresent, "present", "missing")},
		{Label: "Evidence hash present", OK: v.EvidenceHashPresent, Detail: pick(v.EvidenceHashPresent, "present", "missing")},
		{Label: "Report hash present", OK: v.ReportHashPresent, Detail: pick(v.ReportHashPresent, "present", "missing")},
		{Label: "Closed timestamp", OK: v.ClosedSet, Detail: pick(v.ClosedSet, "set", "missing")},
		{Label: "Prod gate", OK: v.ProdGateOK, Detail: pick(v.ProdGateOK, "ok", "requires status=valid")},
	}
}

// Passed reports whether every check holds.
func (v Verdict) Passed() bool {
	for _, c := range v.Checks() {
		if !c.OK {
			return false
		}
	}
	return true
}

func pick(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
