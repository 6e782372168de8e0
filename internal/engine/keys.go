package engine

import "strings"

func strategySymbolTimeframeKey(strategyID, symbol, timeframe string) string {
	return strings.Join([]string{strategyID, symbol, timeframe}, ":")
}

func strategySymbolKey(strategyID, symbol string) string {
	return strings.Join([]string{strategyID, symbol}, ":")
}

func symbolTimeframeKey(symbol, timeframe string) string {
	return strings.Join([]string{symbol, timeframe}, ":")
}
