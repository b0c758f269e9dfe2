package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"github.com/user/ai-spend-tracker/internal/provider"
	"github.com/user/ai-spend-tracker/internal/spend"
)

func PrintJSON(data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data to JSON: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

func PrintTable(snap *spend.Snapshot) error {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		BorderRow(true).
		StyleFunc(func(row, col int) lipgloss.Style {
			return cellStyle
		}).
		Headers("PROVIDER", "SPEND", "FETCHED")

	ids := lo.Keys(snap.Records)
	sort.Strings(ids)
	for _, id := range ids {
		rec := snap.Records[id]
		t.Row(id, formatAmount(rec), formatFetched(rec))
	}

	fmt.Println("AI Provider Spend")
	fmt.Println(t)
	fmt.Printf("Total: $%.2f %s\n", snap.Total(), snap.Currency())
	fmt.Printf("Generated: %s\n", snap.GeneratedAt.Format(time.RFC1123))

	return nil
}

func formatAmount(rec provider.SpendRecord) string {
	if rec.OK() {
		if rec.Amount == nil {
			return "N/A"
		}
		return fmt.Sprintf("$%.2f", *rec.Amount)
	}
	if rec.Amount != nil {
		return fmt.Sprintf("%s ($%.2f stale)", rec.Kind, *rec.Amount)
	}
	return string(rec.Kind)
}

func formatFetched(rec provider.SpendRecord) string {
	if rec.FetchedAt.IsZero() {
		return "-"
	}
	return rec.FetchedAt.Format("15:04:05")
}
