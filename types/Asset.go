package types

import "strings"

// DefaultCoins are the coin ids swept by a multi-coin optimization when none are requested.
var DefaultCoins = []string{
	"bitcoin",
	"ethereum",
	"solana",
	"cardano",
	"ripple",
	"dogecoin",
	"polkadot",
	"avalanche-2",
}

// NormalizeCoin lowercases and trims a coin id.
func NormalizeCoin(coin string) string {
	return strings.ToLower(strings.TrimSpace(coin))
}
