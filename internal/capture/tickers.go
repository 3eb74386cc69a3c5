package capture

// DefaultTickers is the closed vocabulary of tickers recognised as bare words.
var DefaultTickers = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE", "AVAX", "DOT", "LINK",
	"MATIC", "POL", "TON", "TRX", "LTC", "BCH", "ATOM", "NEAR", "APT", "SUI",
	"ARB", "OP", "INJ", "TIA", "SEI", "PEPE", "SHIB", "WIF", "BONK", "UNI",
	"AAVE", "MKR", "LDO", "FIL", "ICP", "HBAR", "XLM", "ETC", "RNDR", "FET",
}

// defaultAliases maps lower-case project names to their tickers.
var defaultAliases = map[string]string{
	"bitcoin":   "BTC",
	"ethereum":  "ETH",
	"ether":     "ETH",
	"solana":    "SOL",
	"ripple":    "XRP",
	"cardano":   "ADA",
	"dogecoin":  "DOGE",
	"avalanche": "AVAX",
	"polkadot":  "DOT",
	"chainlink": "LINK",
	"toncoin":   "TON",
	"litecoin":  "LTC",
	"cosmos":    "ATOM",
	"arbitrum":  "ARB",
	"optimism":  "OP",
	"uniswap":   "UNI",
}

// quoteCurrencies are accepted as the right-hand side of BASE/QUOTE pairs.
var quoteCurrencies = map[string]struct{}{
	"USDT": {}, "USDC": {}, "USD": {}, "BUSD": {}, "BTC": {}, "ETH": {},
}
