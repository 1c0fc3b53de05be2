package model

// ProvisionRunSummary reports one daily provisioning scan.
type ProvisionRunSummary struct {
	Purchased int      `json:"purchased"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// ReleaseRunSummary reports one daily release scan.
type ReleaseRunSummary struct {
	Released int      `json:"released"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
