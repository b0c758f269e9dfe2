package provider

import "context"

// Provider fetches the spend one upstream service reports for a lookback
// window of windowDays. Implementations encapsulate every provider-specific
// detail (endpoint, auth scheme, response schema) behind this signature and
// perform no retries of their own.
type Provider interface {
	ID() string
	DisplayName() string
	SupportsSpend() bool
	FetchSpend(ctx context.Context, cred Credential, windowDays int) (*SpendRecord, error)
}
