package artifacts

import (
	"fmt"
	"strings"
)

// Kind is one of the three files a run produces.
type Kind string

const (
	KindBundle   Kind = "bundle"
	KindAudit    Kind = "audit"
	KindEvidence Kind = "evidence"
)

// Kinds is the fixed resolution order. Batch results report the first
// failure in this order.
var Kinds = []Kind{KindBundle, KindAudit, KindEvidence}

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindBundle, KindAudit, KindEvidence:
		return k, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", raw)
	}
}

// Dir is the local directory holding this kind under the artifact root.
func (k Kind) Dir() string {
	switch k {
	case KindBundle:
		return "packs"
	case KindAudit:
		return "audit"
	case KindEvidence:
		return "evidence"
	default:
		return ""
	}
}

func (k Kind) ext() string {
	if k == KindBundle {
		return ".zip"
	}
	return ".json"
}

// ObjectName is both the local file name and the remote key for a run.
func (k Kind) ObjectName(runID string) string {
	return runID + k.ext()
}

func (k Kind) ContentType() string {
	if k == KindBundle {
		return "application/zip"
	}
	return "application/json; charset=utf-8"
}

// Disposition downloads bundles and shows JSON inline.
func (k Kind) Disposition(runID string) string {
	mode := "inline"
	if k == KindBundle {
		mode = "attachment"
	}
	return fmt.Sprintf("%s; filename=%q", mode, k.ObjectName(runID))
}

// Buckets names the remote bucket for each kind.
type Buckets struct {
	Packs    string
	Audit    string
	Evidence string
}

func (b Buckets) For(k Kind) string {
	switch k {
	case KindBundle:
		return b.Packs
	case KindAudit:
		return b.Audit
	case KindEvidence:
		return b.Evidence
	default:
		return ""
	}
}
