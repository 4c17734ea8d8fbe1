package provider

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// promptCandleCount bounds how many candles are spelled out in the prompt;
// the full window still rides along in Request for technical providers.
const promptCandleCount = 20

func buildPrompt(req Request) string {
	candles := req.Candles
	if len(candles) > promptCandleCount {
		candles = candles[len(candles)-promptCandleCount:]
	}

	var sb strings.Builder
	for i, c := range candles {
		fmt.Fprintf(&sb, "%d: O:%s H:%s L:%s C:%s V:%s\n",
			i+1, c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	acct := req.Account
	cfg := req.Config

	entryPrice := "None"
	if acct.PositionEntryPrice != nil {
		entryPrice = "$" + acct.PositionEntryPrice.StringFixed(2)
	}

	winRate := "0"
	if acct.TotalTrades > 0 {
		winRate = decimal.NewFromInt(int64(acct.WinningTrades)).
			Div(decimal.NewFromInt(int64(acct.TotalTrades))).
			Mul(decimal.NewFromInt(100)).StringFixed(1)
	}

	hundred := decimal.NewFromInt(100)

	return fmt.Sprintf(`You are an AI trading model participating in a %s trading competition.

MARKET DATA (%s timeframe):
Current Price: $%s
Recent Candles (most recent last):
%s
ACCOUNT STATE:
Balance: $%s
Equity: $%s
Current Position: %s
Position Size: %s
Entry Price: %s
Leverage: %dx
Unrealized P&L: $%s
Realized P&L: $%s
Total Trades: %d
Winning Trades: %d
Win Rate: %s%%

COMPETITION RULES:
- Max Leverage: %dx
- Fee Rate: %s%%
- Slippage: %s%%
- Liquidation Threshold: %s%%

RESPOND WITH VALID JSON ONLY:
{
  "action": "LONG|SHORT|CLOSE|HOLD",
  "leverage": 1-%d,
  "size_pct": 0.0-1.0,
  "reason": "Brief explanation of your decision"
}

RULES:
- LONG: Buy/long position
- SHORT: Sell/short position
- CLOSE: Close current position
- HOLD: Do nothing
- leverage: Integer between 1 and %d
- size_pct: Decimal 0.0 to 1.0 (percentage of balance to use)
- Only valid JSON response accepted
- Consider technical indicators, risk management, and market trends
- Manage risk carefully - preserve capital
- If uncertain, use HOLD

Make your trading decision now:`,
		cfg.Market,
		cfg.Timeframe,
		req.CurrentPrice,
		sb.String(),
		acct.Balance.StringFixed(2),
		acct.Equity.StringFixed(2),
		acct.PositionSide,
		acct.PositionSize.StringFixed(6),
		entryPrice,
		acct.PositionLeverage,
		acct.UnrealizedPnL.StringFixed(2),
		acct.RealizedPnL.StringFixed(2),
		acct.TotalTrades,
		acct.WinningTrades,
		winRate,
		cfg.MaxLeverage,
		cfg.FeeRate.Mul(hundred).StringFixed(3),
		cfg.SlippageRate.Mul(hundred).StringFixed(3),
		cfg.LiquidationThreshold.Mul(hundred).StringFixed(1),
		cfg.MaxLeverage,
		cfg.MaxLeverage,
	)
}
