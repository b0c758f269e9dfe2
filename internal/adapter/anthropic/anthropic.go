package anthropic

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/user/ai-spend-tracker/internal/provider"
)

const providerID = "anthropic"

type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ID() string {
	return providerID
}

func (a *Adapter) DisplayName() string {
	return "Anthropic"
}

func (a *Adapter) SupportsSpend() bool {
	return true
}

func (a *Adapter) FetchSpend(ctx context.Context, cred provider.Credential, windowDays int) (*provider.SpendRecord, error) {
	client := NewClient(strings.TrimSpace(cred.Key))

	end := time.Now().UTC()
	start := end.Add(-time.Duration(windowDays) * 24 * time.Hour)

	total := 0.0
	currency := "USD"
	page := ""
	for {
		res, err := client.GetCostReport(ctx, start, end, page)
		if err != nil {
			return nil, err
		}

		res.Get("data").ForEach(func(_, bucket gjson.Result) bool {
			bucket.Get("results").ForEach(func(_, item gjson.Result) bool {
				total += item.Get("amount").Float()
				if c := item.Get("currency").String(); c != "" {
					currency = strings.ToUpper(c)
				}
				return true
			})
			return true
		})

		if !res.Get("has_more").Bool() {
			break
		}
		page = res.Get("next_page").String()
		if page == "" {
			break
		}
	}

	return &provider.SpendRecord{
		Provider:  a.ID(),
		Amount:    provider.Ptr(total),
		Currency:  currency,
		FetchedAt: time.Now().UTC(),
	}, nil
}
