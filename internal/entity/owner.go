package entity

import "time"

// Owner is the entity a set of certificates belongs to (a tutor, a candidate).
type Owner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerAnalysis is the result of analyzing every certificate of one owner.
type OwnerAnalysis struct {
	Owner   *Owner            `json:"owner"`
	Message string            `json:"message"`
	Records []*EnrichedRecord `json:"records"`
	Skipped []SkippedDocument `json:"skipped,omitempty"`
}

// SkippedDocument describes a certificate left out of a batch.
type SkippedDocument struct {
	CertificateID string `json:"certificate_id"`
	Stage         string `json:"stage"`
	Reason        string `json:"reason"`
}
