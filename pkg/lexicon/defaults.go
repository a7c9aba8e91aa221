package lexicon

// DefaultBlacklist holds frequent English words and acronyms shaped like tickers
var DefaultBlacklist = []string{
	"THE", "AND", "FOR", "ARE", "BUT", "NOT", "YOU", "ALL", "CAN", "HER",
	"WAS", "ONE", "OUR", "HAD", "DAY", "GET", "USE", "MAN", "NEW", "NOW",
	"OLD", "SEE", "HIM", "TWO", "HOW", "ITS", "WHO", "OIL", "SIT", "SET",
	"USA", "CEO", "CFO", "CTO", "IPO", "SEC", "FDA", "FBI", "CIA", "NSA",
}

// DefaultFinancialTerms are looked for in the window around a pattern hit
var DefaultFinancialTerms = []string{
	"stock", "shares", "trading", "market", "price", "earnings",
	"revenue", "investor", "analyst", "upgrade", "downgrade",
}

// DefaultContextualTerms are looked for inside a contextual template hit
var DefaultContextualTerms = []string{
	"stock", "shares", "ticker", "symbol", "trades", "listed", "nasdaq", "nyse",
}

// DefaultCommonWords damp pattern scores for tokens that slip past the blacklist
var DefaultCommonWords = []string{
	"THE", "AND", "FOR", "ARE", "BUT", "NOT", "YOU", "ALL", "CAN", "HER",
	"WAS", "ONE", "OUR", "HAD", "SAID",
}
