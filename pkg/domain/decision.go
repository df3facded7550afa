package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType identifies what kind of work a proposed action requires.
type ActionType string

const (
	ActionTypeEquityTrade ActionType = "equity_trade"
	ActionTypeCryptoTrade ActionType = "crypto_trade"
	ActionTypeRiskAudit   ActionType = "risk_audit"
	ActionTypeDeposit     ActionType = "deposit"
	ActionTypeWithdrawal  ActionType = "withdrawal"
)

// Capability tags agents register under.
const (
	CapabilityEquityTrading = "equity-trading"
	CapabilityCryptoTrading = "crypto-trading"
	CapabilityRiskCheck     = "risk-check"
	CapabilityCashOps       = "cash-ops"
)

// Capability returns the agent capability tag required to execute
// an action of this type.
func (t ActionType) Capability() string {
	switch t {
	case ActionTypeEquityTrade:
		return CapabilityEquityTrading
	case ActionTypeCryptoTrade:
		return CapabilityCryptoTrading
	case ActionTypeRiskAudit:
		return CapabilityRiskCheck
	case ActionTypeDeposit, ActionTypeWithdrawal:
		return CapabilityCashOps
	default:
		return ""
	}
}

// TradeAffecting reports whether actions of this type mutate cash or
// holdings and therefore require a risk verdict before execution.
func (t ActionType) TradeAffecting() bool {
	return t != ActionTypeRiskAudit
}

// TradeSide is the direction of a trade order.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeOrder is the normalized order shape handed to trading agents.
type TradeOrder struct {
	Instrument string          `json:"instrument"`
	Category   string          `json:"category"`
	Side       TradeSide       `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice decimal.Decimal `json:"limit_price,omitempty"`
}

// CashFlow is the payload of deposit and withdrawal actions.
type CashFlow struct {
	Amount decimal.Decimal `json:"amount"`
}

// ProposedAction is one action of a decision batch. Exactly one of
// Trade or Cash is set depending on Type; risk audits carry neither.
type ProposedAction struct {
	Type     ActionType  `json:"type"`
	Priority int         `json:"priority"`
	Trade    *TradeOrder `json:"trade,omitempty"`
	Cash     *CashFlow   `json:"cash,omitempty"`
}

// Validate checks the action payload matches its type.
func (a ProposedAction) Validate() error {
	switch a.Type {
	case ActionTypeEquityTrade, ActionTypeCryptoTrade:
		if a.Trade == nil {
			return fmt.Errorf("%s action requires a trade order", a.Type)
		}
		if a.Trade.Instrument == "" {
			return fmt.Errorf("trade order requires an instrument")
		}
		if a.Trade.Side != TradeSideBuy && a.Trade.Side != TradeSideSell {
			return fmt.Errorf("invalid trade side: %q", a.Trade.Side)
		}
		if !a.Trade.Quantity.IsPositive() {
			return fmt.Errorf("trade quantity must be positive")
		}
	case ActionTypeDeposit, ActionTypeWithdrawal:
		if a.Cash == nil {
			return fmt.Errorf("%s action requires a cash flow", a.Type)
		}
		if !a.Cash.Amount.IsPositive() {
			return fmt.Errorf("cash flow amount must be positive")
		}
	case ActionTypeRiskAudit:
		// No payload beyond the type itself.
	default:
		return fmt.Errorf("unknown action type: %q", a.Type)
	}
	return nil
}

// Describe renders the action for the decisions feed.
func (a ProposedAction) Describe() string {
	switch a.Type {
	case ActionTypeEquityTrade, ActionTypeCryptoTrade:
		return fmt.Sprintf("%s %s %s", strings.ToUpper(string(a.Trade.Side)), a.Trade.Quantity, a.Trade.Instrument)
	case ActionTypeDeposit:
		return fmt.Sprintf("DEPOSIT %s", a.Cash.Amount)
	case ActionTypeWithdrawal:
		return fmt.Sprintf("WITHDRAW %s", a.Cash.Amount)
	case ActionTypeRiskAudit:
		return "RISK AUDIT"
	default:
		return string(a.Type)
	}
}

// Decision is an ordered batch of proposed actions for one account,
// stamped with a monotonically increasing epoch. A newer epoch
// supersedes any jobs still pending from an older one.
type Decision struct {
	ID          string           `json:"id"`
	AccountID   string           `json:"account_id"`
	Epoch       uint64           `json:"epoch"`
	Actions     []ProposedAction `json:"actions"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

// Validate checks the decision is structurally sound.
func (d Decision) Validate() error {
	if d.AccountID == "" {
		return fmt.Errorf("decision requires an account id")
	}
	if d.Epoch == 0 {
		return fmt.Errorf("decision epoch must be positive")
	}
	if len(d.Actions) == 0 {
		return fmt.Errorf("decision must contain at least one action")
	}
	for i, a := range d.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// IdempotencyKey derives the deterministic key for the action at the
// given index, so re-submission of the same decision never duplicates
// a ledger effect.
func (d Decision) IdempotencyKey(index int) string {
	return fmt.Sprintf("%s:%d:%d", d.AccountID, d.Epoch, index)
}
