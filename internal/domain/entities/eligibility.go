package entities

// Eligibility reasons
const (
	ReasonEkycNotVerified    = "ekyc_not_verified"
	ReasonAccountNotVerified = "account_not_verified"
	ReasonNoApprovedDocument = "no_approved_document"
	ReasonContractNotReady   = "contract_not_approved"
)

// Eligibility is the evaluated payment-eligibility predicate for a user.
type Eligibility struct {
	Eligible         bool     `json:"eligible"`
	EkycVerified     bool     `json:"ekycVerified"`
	AccountVerified  bool     `json:"accountVerified"`
	DocumentApproved bool     `json:"documentApproved"`
	ContractApproved bool     `json:"contractApproved,omitempty"`
	Reasons          []string `json:"reasons,omitempty"`
}
