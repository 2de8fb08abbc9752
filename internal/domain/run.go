package domain

import "time"

// Run is one recorded pipeline execution as stored in the runs table. The
// dashboard only reads runs; producers own the rows.
type Run struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Mode           string    `json:"mode"`
	Status         string    `json:"status"`
	PolicyVersion  string    `json:"policy_version"`
	BundleHash     *string   `json:"bundle_sha256"`
	EvidenceHash   *string   `json:"evidence_sha256"`
	ReportHash     *string   `json:"report_sha256"`
	EvidenceSource string    `json:"evidence_source"`
	ClosedAt       *string   `json:"closed_at"`
}
