package queries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Price struct {
	Coin  string
	Day   time.Time
	Price decimal.Decimal
}

type BacktestResult struct {
	ID             uuid.UUID
	Strategy       string
	Coin           string
	InitialCapital decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	FinalValue     decimal.Decimal
	Params         []byte
	Payload        []byte
	CreatedAt      time.Time
}

type OptimizationResult struct {
	ID             uuid.UUID
	Coin           string
	Strategy       string
	Params         []byte
	FinalValue     decimal.Decimal
	TotalReturnPct float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	WinRatePct     float64
	TradeCount     int32
	Score          float64
	CreatedAt      time.Time
}
