package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/executor"
)

// TradingMonitor watches crypto positions and market signals. It never
// places an order without an explicit operator approval.
type TradingMonitor struct {
	watchlist []string
}

func NewTradingMonitor(settings map[string]any) *TradingMonitor {
	return &TradingMonitor{
		watchlist: strSliceSetting(settings, "watchlist", []string{"BTC/USDT", "ETH/USDT"}),
	}
}

func (t *TradingMonitor) Name() string            { return "trading_monitor" }
func (t *TradingMonitor) DefaultSchedule() string { return "every 15 minutes" }

func (t *TradingMonitor) Description() string {
	return "Monitors trading positions, tracks signals, sends alerts"
}

func (t *TradingMonitor) BehaviorSpec() string {
	return fmt.Sprintf(
		"Watch %s for significant price moves and signal changes. Alert the operator on anything notable. Order placement always requires approval first.",
		strings.Join(t.watchlist, ", "),
	)
}

func (t *TradingMonitor) Operations() []string {
	return []string{
		"get_market_data",
		"check_open_positions",
		"analyze_signals",
		"place_order",
		"get_pnl_summary",
	}
}

func (t *TradingMonitor) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	scan := tk.Execute(ctx, fmt.Sprintf(
		"Check current price, 24h change, and open positions for %s. Note anything that crossed an alert threshold.",
		strings.Join(t.watchlist, ", "),
	), executor.ComplexitySimple)

	signals := tk.Execute(ctx,
		"Analyze these market observations for actionable signals. If a position adjustment looks warranted, say so explicitly:\n"+scan,
		executor.ComplexityComplex)

	// Any suggested order goes through the operator first. The executor
	// output is advisory; approval gates the action itself.
	if strings.Contains(strings.ToLower(signals), "order") {
		approved, err := tk.RequestApproval(ctx, "place_order", signals)
		if err != nil {
			return nil, fmt.Errorf("request order approval: %w", err)
		}
		if !approved {
			signals += "\n(order suggestion declined by operator)"
		}
	}

	if err := tk.Remember(ctx, signals, map[string]any{"kind": "market_scan"}, true); err != nil {
		return nil, fmt.Errorf("store market scan: %w", err)
	}
	return signals, nil
}
