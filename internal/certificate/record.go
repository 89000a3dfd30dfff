package certificate

import (
	"strings"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

// ExtractRecord applies schema to text. Anchored entries use FindAfter; literal
// entries are set to the literal itself iff it appears verbatim.
func ExtractRecord(text string, schema []constants.FieldSpec) entity.Fields {
	var f entity.Fields
	for _, spec := range schema {
		f.Set(spec.Name, locate(text, spec))
	}
	return f
}

func locate(text string, spec constants.FieldSpec) *string {
	if spec.IsLiteral() {
		if !strings.Contains(text, spec.Literal) {
			return nil
		}
		v := spec.Literal
		return &v
	}
	return FindAfter(text, spec.Label)
}

// NewCandidate binds extracted fields to their owner and certificate. An owner
// without a name is reported as "Unknown".
func NewCandidate(owner *entity.Owner, certificateID string, fields entity.Fields) entity.CandidateRecord {
	rec := entity.CandidateRecord{CertificateID: certificateID, Fields: fields}
	if owner != nil {
		rec.OwnerID = owner.ID
		rec.OwnerName = owner.Name
	}
	if strings.TrimSpace(rec.OwnerName) == "" {
		rec.OwnerName = constants.UnknownOwnerName
	}
	return rec
}
