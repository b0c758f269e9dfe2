package openai

import (
	"context"
	"strings"
	"time"

	"github.com/user/ai-spend-tracker/internal/provider"
)

const providerID = "openai"

type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ID() string {
	return providerID
}

func (a *Adapter) DisplayName() string {
	return "OpenAI"
}

func (a *Adapter) SupportsSpend() bool {
	return true
}

func (a *Adapter) FetchSpend(ctx context.Context, cred provider.Credential, windowDays int) (*provider.SpendRecord, error) {
	client := NewClient(strings.TrimSpace(cred.Key), strings.TrimSpace(cred.OrgID))

	end := time.Now().UTC()
	start := end.Add(-time.Duration(windowDays) * 24 * time.Hour)

	resp, err := client.GetCosts(ctx, start, end)
	if err != nil {
		return nil, err
	}

	total := 0.0
	currency := "USD"
	for _, bucket := range resp.Data {
		for _, r := range bucket.Results {
			total += r.Amount.Value
			if r.Amount.Currency != "" {
				currency = strings.ToUpper(r.Amount.Currency)
			}
		}
	}

	return &provider.SpendRecord{
		Provider:  a.ID(),
		Amount:    provider.Ptr(total),
		Currency:  currency,
		FetchedAt: time.Now().UTC(),
	}, nil
}
