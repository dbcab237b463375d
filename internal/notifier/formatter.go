package notifier

import (
	"fmt"
	"html"
	"strings"

	"WaveSentinel/internal/model"
)

// FormatSignal formats a signal event into a Telegram message.
func FormatSignal(ev model.SignalEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>\n\n", html.EscapeString(ev.Message)))
	b.WriteString(fmt.Sprintf("Price: %.6f\n", ev.Price))
	switch ev.Type {
	case model.SignalBuy:
		b.WriteString(fmt.Sprintf("WT1: %.2f | Strength: %.2f\n", ev.WaveValue, ev.Strength))
	case model.SignalProfit:
		b.WriteString(fmt.Sprintf("Entry: %.6f (%s %s)\n", ev.EntryPrice, ev.EntryDate, ev.EntryTime))
		b.WriteString(fmt.Sprintf("Profit: %+.2f%%\n", ev.ProfitPercent))
	case model.SignalSell:
		b.WriteString(fmt.Sprintf("Entry: %.6f (%s %s)\n", ev.EntryPrice, ev.EntryDate, ev.EntryTime))
		b.WriteString(fmt.Sprintf("Total profit: %+.2f%% | WT1: %.2f\n", ev.ProfitPercent, ev.WaveValue))
	}
	b.WriteString(fmt.Sprintf("%s %s", ev.Date, ev.Time))
	return b.String()
}

// FormatStatus formats the engine status for display.
func FormatStatus(st model.Status) string {
	state := "stopped ⏸"
	if st.Running {
		state = "running ▶️"
	}
	var b strings.Builder
	b.WriteString("📡 <b>WaveSentinel status</b>\n\n")
	b.WriteString(fmt.Sprintf("Analysis: %s\n", state))
	b.WriteString(fmt.Sprintf("Active signals: %d\n", st.ActiveCount))
	b.WriteString(fmt.Sprintf("Open positions: %d\n", st.OpenPositionCount))
	b.WriteString(fmt.Sprintf("Signals emitted: %d\n", st.HistoryCount))
	return b.String()
}

// FormatActive lists the BUY events of open positions.
func FormatActive(signals []model.ActiveSignal) string {
	if len(signals) == 0 {
		return "No active signals."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚀 <b>Active signals</b> (%d)\n\n", len(signals)))
	for _, s := range signals {
		b.WriteString(fmt.Sprintf("%s @ %.6f | WT1 %.2f | %s %s\n", s.Symbol, s.Price, s.WaveValue, s.Date, s.Time))
	}
	return b.String()
}

// FormatPortfolio formats open positions priced at the latest close.
func FormatPortfolio(entries []model.PortfolioEntry) string {
	if len(entries) == 0 {
		return "Portfolio is empty."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💼 <b>Portfolio</b> (%d)\n\n", len(entries)))
	for _, e := range entries {
		mark := "⏳"
		if e.Status == "profit" {
			mark = "🎉"
		}
		b.WriteString(fmt.Sprintf("%s %s: %.6f → %.6f (%+.2f%%) since %s %s\n",
			mark, e.Symbol, e.EntryPrice, e.CurrentPrice, e.ProfitPercent, e.EntryDate, e.EntryTime))
	}
	return b.String()
}

// FormatHistory formats recent signal events, oldest first.
func FormatHistory(events []model.SignalEvent) string {
	if len(events) == 0 {
		return "No signals yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📜 <b>Recent signals</b> (%d)\n\n", len(events)))
	for _, ev := range events {
		b.WriteString(fmt.Sprintf("#%d %s %s | %s\n", ev.ID, ev.Date, ev.Time, html.EscapeString(ev.Message)))
	}
	return b.String()
}

// FormatIndicators formats an indicator snapshot.
func FormatIndicators(snap model.IndicatorSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📐 <b>%s</b> @ %.6f\n\n", snap.Symbol, snap.Price))
	b.WriteString(fmt.Sprintf("WT1: %.2f | CI: %.2f\n", snap.WaveValue, snap.ChannelIndex))
	b.WriteString(fmt.Sprintf("RSI: %.2f\n", snap.RSI))
	b.WriteString(fmt.Sprintf("EMA20: %.6f | EMA50: %.6f\n", snap.EMA20, snap.EMA50))
	b.WriteString(fmt.Sprintf("Range: %.6f - %.6f (%.0f%%)", snap.Support, snap.Resistance, snap.RangePosition))
	return b.String()
}
