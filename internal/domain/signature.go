package domain

// SignaturePayload is the signed content embedded in a verification link.
// Its field set and order are part of the signature contract: changing
// either invalidates every signature issued so far.
type SignaturePayload struct {
	DocumentID     string `json:"documentId"`
	DocumentNumber string `json:"documentNumber"`
	IssueDate      string `json:"issueDate"`
	SignerName     string `json:"signerName"`
	SignerRole     string `json:"signerRole"`
	Timestamp      string `json:"timestamp"`
}
