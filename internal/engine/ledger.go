package engine

import (
	"coinlab/types"

	"github.com/shopspring/decimal"
)

// dustEpsilon is the quantity below which a position is treated as closed.
var dustEpsilon = decimal.New(1, -12)

// TradingState is the mutable cash/position state of one backtest run.
type TradingState struct {
	Cash          decimal.Decimal
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
}

// Execution is the raw output of a strategy run.
type Execution struct {
	Trades        []types.Trade
	EquityCurve   []types.EquityPoint
	FinalCash     decimal.Decimal
	FinalQuantity decimal.Decimal
}

// Ledger owns the state, trade list and equity curve of a single run. It is not safe
// for concurrent use; every run builds its own.
type Ledger struct {
	coin   string
	state  TradingState
	trades []types.Trade
	equity []types.EquityPoint
}

func NewLedger(coin string, initialCash decimal.Decimal) *Ledger {
	return &Ledger{
		coin:  coin,
		state: TradingState{Cash: initialCash},
	}
}

func (l *Ledger) State() TradingState {
	return l.state
}

// BuyByNotional spends up to amount of the available cash at the point's price.
func (l *Ledger) BuyByNotional(p types.PricePoint, amount decimal.Decimal) {
	spend := decimal.Min(l.state.Cash, amount)
	if !spend.IsPositive() || !p.Price.IsPositive() {
		return
	}
	bought := spend.Div(p.Price)
	if !bought.IsPositive() {
		return
	}

	l.state.AvgEntryPrice = weightedAvg(l.state.AvgEntryPrice, l.state.Quantity, p.Price, bought)
	l.state.Cash = l.state.Cash.Sub(spend)
	l.state.Quantity = l.state.Quantity.Add(bought)

	l.trades = append(l.trades, types.Trade{
		Coin:     l.coin,
		Date:     p.Date,
		Action:   types.SideTypeBuy,
		Price:    p.Price,
		Quantity: bought,
		Notional: p.Price.Mul(bought),
	})
}

// SellByQuantity sells up to qty of the held position at the point's price.
func (l *Ledger) SellByQuantity(p types.PricePoint, qty decimal.Decimal) {
	sold := decimal.Min(l.state.Quantity, qty)
	if !sold.IsPositive() || !p.Price.IsPositive() {
		return
	}

	proceeds := p.Price.Mul(sold)
	pnl := p.Price.Sub(l.state.AvgEntryPrice).Mul(sold)

	l.state.Cash = l.state.Cash.Add(proceeds)
	l.state.Quantity = l.state.Quantity.Sub(sold)
	if l.state.Quantity.LessThanOrEqual(dustEpsilon) {
		l.state.Quantity = decimal.Zero
		l.state.AvgEntryPrice = decimal.Zero
	}

	l.trades = append(l.trades, types.Trade{
		Coin:        l.coin,
		Date:        p.Date,
		Action:      types.SideTypeSell,
		Price:       p.Price,
		Quantity:    sold,
		Notional:    proceeds,
		RealizedPnL: decimal.NewNullDecimal(pnl),
	})
}

func (l *Ledger) BuyAll(p types.PricePoint) {
	l.BuyByNotional(p, l.state.Cash)
}

func (l *Ledger) SellAll(p types.PricePoint) {
	l.SellByQuantity(p, l.state.Quantity)
}

// RecordEquity appends the mark-to-market value at p. Call it exactly once per price point.
func (l *Ledger) RecordEquity(p types.PricePoint) {
	l.equity = append(l.equity, types.EquityPoint{
		Date:   p.Date,
		Equity: l.state.Cash.Add(l.state.Quantity.Mul(p.Price)),
	})
}

func (l *Ledger) Execution() *Execution {
	return &Execution{
		Trades:        l.trades,
		EquityCurve:   l.equity,
		FinalCash:     l.state.Cash,
		FinalQuantity: l.state.Quantity,
	}
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
