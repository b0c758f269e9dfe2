package openrouter

import (
	"context"
	"strings"
	"time"

	"github.com/user/ai-spend-tracker/internal/provider"
)

const providerID = "openrouter"

type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ID() string {
	return providerID
}

func (a *Adapter) DisplayName() string {
	return "OpenRouter"
}

func (a *Adapter) SupportsSpend() bool {
	return true
}

// FetchSpend reports lifetime usage for the key. The credits endpoint has no
// time filter, so windowDays is ignored.
func (a *Adapter) FetchSpend(ctx context.Context, cred provider.Credential, windowDays int) (*provider.SpendRecord, error) {
	client := NewClient(strings.TrimSpace(cred.Key))

	resp, err := client.GetCredits(ctx)
	if err != nil {
		return nil, err
	}

	return &provider.SpendRecord{
		Provider:  a.ID(),
		Amount:    provider.Ptr(resp.Data.TotalUsage),
		Currency:  "USD",
		FetchedAt: time.Now().UTC(),
	}, nil
}
