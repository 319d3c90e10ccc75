package models

// Currency identifies one of the supported wallet currencies. Exchange rates
// are quoted against BaseCurrency.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyCAD Currency = "CAD"
	CurrencyCNY Currency = "CNY"
)

// BaseCurrency is the quote currency for all exchange rates.
const BaseCurrency = CurrencyUSD

func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyCAD, CurrencyCNY:
		return true
	}
	return false
}
