package cursor

import (
	"context"
	"errors"

	"github.com/user/ai-spend-tracker/internal/provider"
)

const providerID = "cursor"

// Adapter is a placeholder. Cursor has no public spend API, so a configured
// cursor credential always produces an unsupported record rather than a fetch.
type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ID() string {
	return providerID
}

func (a *Adapter) DisplayName() string {
	return "Cursor"
}

func (a *Adapter) SupportsSpend() bool {
	return false
}

func (a *Adapter) FetchSpend(ctx context.Context, cred provider.Credential, windowDays int) (*provider.SpendRecord, error) {
	return nil, provider.NewError(a.ID(), provider.KindUnsupported, errors.New("no public spend API"))
}
