package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/certverify/constants"
)

// Fields holds the values located in certificate text. A nil pointer means the
// field was not found; a pointer to "" means the anchor was found with no value.
type Fields struct {
	ReferenceNumber *string `json:"reference_number"`
	Title           *string `json:"title"`
	Name            *string `json:"name"`
	IndexNumber     *string `json:"index_number"`
	Year            *string `json:"year"`
}

// Get returns the value stored under a schema field name.
func (f *Fields) Get(name string) *string {
	switch name {
	case constants.FieldReferenceNumber:
		return f.ReferenceNumber
	case constants.FieldTitle:
		return f.Title
	case constants.FieldName:
		return f.Name
	case constants.FieldIndexNumber:
		return f.IndexNumber
	case constants.FieldYear:
		return f.Year
	}
	return nil
}

// Set stores v under a schema field name. Unknown names are ignored.
func (f *Fields) Set(name string, v *string) {
	switch name {
	case constants.FieldReferenceNumber:
		f.ReferenceNumber = v
	case constants.FieldTitle:
		f.Title = v
	case constants.FieldName:
		f.Name = v
	case constants.FieldIndexNumber:
		f.IndexNumber = v
	case constants.FieldYear:
		f.Year = v
	}
}

// CandidateRecord is the unverified result of extraction for one certificate.
type CandidateRecord struct {
	OwnerID       string `json:"owner_id"`
	OwnerName     string `json:"owner_name"`
	CertificateID string `json:"certificate_id"`
	Fields
}

// Verdict is the completeness classification of a candidate record.
type Verdict struct {
	Status  constants.VerificationStatus `json:"verification_status"`
	Message string                       `json:"verification_message"`
	Missing []string                     `json:"missing_fields,omitempty"`
}

// Verified reports whether every required field was present.
func (v Verdict) Verified() bool { return v.Status == constants.StatusVerified }

// EnrichedRecord is a candidate record with its verdict and source text, the
// unit written back to the store. Persisted is false when the write failed.
type EnrichedRecord struct {
	CandidateRecord
	Verdict
	ExtractedText string    `json:"extracted_text"`
	AnalysisID    uuid.UUID `json:"analysis_id"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
	Persisted     bool      `json:"persisted"`
}

// Analysis projects the record onto the shape persisted against a certificate.
func (r *EnrichedRecord) Analysis() *Analysis {
	return &Analysis{
		Fields:        r.Fields,
		Status:        r.Status,
		Message:       r.Message,
		ExtractedText: r.ExtractedText,
		AnalysisID:    r.AnalysisID,
		AnalyzedAt:    r.AnalyzedAt,
	}
}
