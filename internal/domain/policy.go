package domain

type SigningPolicyInput struct {
	SignerRole  string      `json:"signer_role"`
	Scope       Scope       `json:"scope"`
	SubjectType SubjectType `json:"subject_type"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}
