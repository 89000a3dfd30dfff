package certificate

import (
	"strings"

	"github.com/joseph-ayodele/certverify/constants"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

// Verifier classifies a candidate record as complete or not.
type Verifier struct {
	schema         []constants.FieldSpec
	emptyAsMissing bool
}

type VerifierOption func(*Verifier)

// WithEmptyAsMissing counts fields whose anchor was found with no value as
// missing. By default only absent fields are missing.
func WithEmptyAsMissing(on bool) VerifierOption {
	return func(v *Verifier) { v.emptyAsMissing = on }
}

func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{schema: constants.Schema()}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify lists missing required fields in schema order and derives the verdict.
func (v *Verifier) Verify(f entity.Fields) entity.Verdict {
	var missing []string
	for _, spec := range v.schema {
		val := f.Get(spec.Name)
		if val == nil || (v.emptyAsMissing && strings.TrimSpace(*val) == "") {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) == 0 {
		return entity.Verdict{Status: constants.StatusVerified, Message: constants.MessageVerified}
	}
	return entity.Verdict{
		Status:  constants.StatusNotVerified,
		Message: constants.MessageMissingPrefix + strings.Join(missing, ", "),
		Missing: missing,
	}
}
