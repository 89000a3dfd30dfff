package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/certverify/constants"
)

// Certificate is a stored document reference plus its last analysis, if any.
type Certificate struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
	Analysis  *Analysis `json:"analysis,omitempty"`
}

// Analysis is the persisted outcome of one analysis pass.
type Analysis struct {
	Fields
	Status        constants.VerificationStatus `json:"verification_status"`
	Message       string                       `json:"verification_message"`
	ExtractedText string                       `json:"extracted_text"`
	AnalysisID    uuid.UUID                    `json:"analysis_id"`
	AnalyzedAt    time.Time                    `json:"analyzed_at"`
}
