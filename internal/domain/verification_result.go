package domain

type VerificationResult struct {
	Valid             bool   `json:"valid"`
	DocumentNumber    string `json:"documentNumber,omitempty"`
	IssueDate         string `json:"issueDate,omitempty"`
	SignerName        string `json:"signerName,omitempty"`
	VerificationCount *int64 `json:"verificationCount,omitempty"`
	Error             string `json:"error,omitempty"`
}
