package constants

// VerificationStatus is the verdict stored on an analyzed certificate.
type VerificationStatus string

// Stable values (store these exact strings in DB).
const (
	StatusVerified    VerificationStatus = "verified"
	StatusNotVerified VerificationStatus = "not_verified"
)

// Stage is the position of one document in the analysis pipeline.
type Stage string

const (
	StagePending     Stage = "pending"
	StageDownloading Stage = "downloading"
	StageExtracting  Stage = "extracting"
	StageVerifying   Stage = "verifying"
	StagePersisting  Stage = "persisting"
	StageDone        Stage = "done"
	StageSkipped     Stage = "skipped"
)

// Verdict messages.
const (
	MessageVerified      = "Verification passed"
	MessageMissingPrefix = "Your certificate has an issue. Missing fields: "
)

// UnknownOwnerName is reported when the owner record carries no name.
const UnknownOwnerName = "Unknown"

// BatchMessageFormat is the summary of a whole-owner analysis; the verb takes the owner id.
const BatchMessageFormat = "Certificate data extracted successfully for owner %s!"
