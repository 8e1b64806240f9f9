package core

import "github.com/shopspring/decimal"

// Split is the per-person view of a ledger item.
type Split struct {
	ItemID       string          `json:"itemId"`
	Participants []string        `json:"participants"`
	Share        decimal.Decimal `json:"share"`
	Currency     string          `json:"currencyCode"`
	ShareHome    decimal.Decimal `json:"shareHome"`
	HomeCurrency string          `json:"homeCurrencyCode"`
}

// Participants returns the creator followed by everyone the item is split
// with, deduplicated in first-seen order. It is never empty.
func Participants(item LedgerItem) []string {
	out := make([]string, 0, len(item.SplitWith)+1)
	seen := map[string]struct{}{item.CreatorUserID: {}}
	out = append(out, item.CreatorUserID)
	for _, id := range item.SplitWith {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// PerPersonShare divides the item amount evenly among its participants.
// The result is not rounded.
func PerPersonShare(item LedgerItem) decimal.Decimal {
	n := int64(len(Participants(item)))
	return item.Amount.Div(decimal.NewFromInt(n))
}

// ConvertedShare converts the unrounded per-person share to home currency.
func ConvertedShare(item LedgerItem, settings TripSettings) decimal.Decimal {
	return Convert(PerPersonShare(item), item.CurrencyCode, settings)
}

// SplitOf builds the full split view of item.
func SplitOf(item LedgerItem, settings TripSettings) Split {
	return Split{
		ItemID:       item.ID,
		Participants: Participants(item),
		Share:        PerPersonShare(item),
		Currency:     item.CurrencyCode,
		ShareHome:    ConvertedShare(item, settings),
		HomeCurrency: settings.HomeCurrencyCode,
	}
}
