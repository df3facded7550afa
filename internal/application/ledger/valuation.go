package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
)

var hundred = decimal.NewFromInt(100)

// Performance reports portfolio value change over standard lookback
// windows, in percent. Windows without history report zero.
type Performance struct {
	Daily   decimal.Decimal `json:"daily"`
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
	Yearly  decimal.Decimal `json:"yearly"`
}

// PortfolioSummary is the dashboard's top-level account view.
type PortfolioSummary struct {
	AccountID   string                     `json:"account_id"`
	Version     uint64                     `json:"version"`
	TotalValue  decimal.Decimal            `json:"total_value"`
	CashBalance decimal.Decimal            `json:"cash_balance"`
	Allocation  map[string]decimal.Decimal `json:"allocation"`
	Performance Performance                `json:"performance"`
}

// AssetView is one row of the dashboard's assets list.
type AssetView struct {
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	Value             decimal.Decimal `json:"value"`
	AllocationPercent decimal.Decimal `json:"allocation_percent"`
}

// Summary values the account at current quotes and computes the
// per-category allocation and performance windows.
func (l *Ledger) Summary(ctx context.Context, accountID string) (*PortfolioSummary, error) {
	state, err := l.store.LoadPortfolio(ctx, accountID)
	if err != nil {
		return nil, err
	}

	total := state.CashBalance
	byCategory := map[string]decimal.Decimal{}
	for symbol, qty := range state.Holdings {
		price, err := l.quotes.Quote(ctx, symbol)
		if err != nil {
			l.logger.Warn("no quote for held instrument, valuing at zero",
				zap.String("symbol", symbol))
			continue
		}
		value := qty.Mul(price)
		total = total.Add(value)

		category := "Other"
		if info, err := l.catalog.Describe(ctx, symbol); err == nil && info.Category != "" {
			category = info.Category
		}
		byCategory[category] = byCategory[category].Add(value)
	}

	allocation := map[string]decimal.Decimal{}
	if total.IsPositive() {
		allocation["Cash"] = state.CashBalance.Div(total).Mul(hundred).Round(2)
		for category, value := range byCategory {
			allocation[category] = value.Div(total).Mul(hundred).Round(2)
		}
	}

	l.recordValuationValue(accountID, total)

	return &PortfolioSummary{
		AccountID:   accountID,
		Version:     state.Version,
		TotalValue:  total.Round(2),
		CashBalance: state.CashBalance,
		Allocation:  allocation,
		Performance: l.performance(accountID, total),
	}, nil
}

// Assets returns the priced holdings list for the dashboard.
func (l *Ledger) Assets(ctx context.Context, accountID string) ([]AssetView, error) {
	state, err := l.store.LoadPortfolio(ctx, accountID)
	if err != nil {
		return nil, err
	}

	total := state.CashBalance
	views := make([]AssetView, 0, len(state.Holdings))
	for symbol, qty := range state.Holdings {
		price, err := l.quotes.Quote(ctx, symbol)
		if err != nil {
			price = decimal.Zero
		}
		name := symbol
		if info, err := l.catalog.Describe(ctx, symbol); err == nil && info.Name != "" {
			name = info.Name
		}
		value := qty.Mul(price)
		total = total.Add(value)
		views = append(views, AssetView{
			Symbol:   symbol,
			Name:     name,
			Quantity: qty,
			Price:    price,
			Value:    value.Round(2),
		})
	}

	if total.IsPositive() {
		for i := range views {
			views[i].AllocationPercent = views[i].Value.Div(total).Mul(hundred).Round(2)
		}
	}

	sort.Slice(views, func(i, j int) bool { return views[i].Value.GreaterThan(views[j].Value) })
	return views, nil
}

// recordValuation prices the new state and appends a history point.
func (l *Ledger) recordValuation(ctx context.Context, state *domain.PortfolioState) {
	total := state.CashBalance
	for symbol, qty := range state.Holdings {
		price, err := l.quotes.Quote(ctx, symbol)
		if err != nil {
			continue
		}
		total = total.Add(qty.Mul(price))
	}
	l.recordValuationValue(state.AccountID, total)
}

func (l *Ledger) recordValuationValue(accountID string, total decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history[accountID] = append(l.history[accountID], valuePoint{at: time.Now(), value: total})
}

// performance computes percent change against the oldest history
// point inside each lookback window.
func (l *Ledger) performance(accountID string, current decimal.Decimal) Performance {
	l.mu.Lock()
	points := l.history[accountID]
	l.mu.Unlock()

	return Performance{
		Daily:   changeSince(points, current, 24*time.Hour),
		Weekly:  changeSince(points, current, 7*24*time.Hour),
		Monthly: changeSince(points, current, 30*24*time.Hour),
		Yearly:  changeSince(points, current, 365*24*time.Hour),
	}
}

func changeSince(points []valuePoint, current decimal.Decimal, window time.Duration) decimal.Decimal {
	cutoff := time.Now().Add(-window)
	for _, p := range points {
		if p.at.After(cutoff) {
			if p.value.IsPositive() {
				return current.Sub(p.value).Div(p.value).Mul(hundred).Round(2)
			}
			break
		}
	}
	return decimal.Zero
}
