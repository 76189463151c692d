package domain

// Supported currency codes. XOF is the ledger currency; the others are display-only.
const (
	CurrencyXOF = "XOF"
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
)
