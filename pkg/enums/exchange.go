package enums

import "fmt"

// Exchange tags which venue an API credential belongs to.
type Exchange string

const (
	ExchangeBinance  Exchange = "binance"
	ExchangeCoinbase Exchange = "coinbase"
	ExchangeKraken   Exchange = "kraken"
	ExchangeBybit    Exchange = "bybit"
)

var validExchanges = []Exchange{
	ExchangeBinance,
	ExchangeCoinbase,
	ExchangeKraken,
	ExchangeBybit,
}

// String implements fmt.Stringer.
func (e Exchange) String() string {
	return string(e)
}

// IsValid reports whether the value is known.
func (e Exchange) IsValid() bool {
	for _, candidate := range validExchanges {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExchange converts raw input into an Exchange.
func ParseExchange(value string) (Exchange, error) {
	for _, candidate := range validExchanges {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exchange %q", value)
}
