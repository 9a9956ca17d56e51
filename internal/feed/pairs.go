package feed

// canonicalToWire maps at least 22 canonical GBP pairs (uppercase, no
// separator) to the slash form the WebSocket interface expects.
var canonicalToWire = map[string]string{
	"BTCGBP":  "BTC/GBP",
	"ETHGBP":  "ETH/GBP",
	"XRPGBP":  "XRP/GBP",
	"LTCGBP":  "LTC/GBP",
	"ADAGBP":  "ADA/GBP",
	"DOTGBP":  "DOT/GBP",
	"SOLGBP":  "SOL/GBP",
	"LINKGBP": "LINK/GBP",
	"DOGEGBP": "DOGE/GBP",
	"ALGOGBP": "ALGO/GBP",
	"ATOMGBP": "ATOM/GBP",
	"AVAXGBP": "AVAX/GBP",
	"BCHGBP":  "BCH/GBP",
	"EOSGBP":  "EOS/GBP",
	"ETCGBP":  "ETC/GBP",
	"FILGBP":  "FIL/GBP",
	"GRTGBP":  "GRT/GBP",
	"MATICGBP": "MATIC/GBP",
	"TRXGBP":  "TRX/GBP",
	"UNIGBP":  "UNI/GBP",
	"XLMGBP":  "XLM/GBP",
	"XTZGBP":  "XTZ/GBP",
	"SANDGBP": "SAND/GBP",
}

var wireToCanonical = inverted(canonicalToWire)

func inverted(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// ToWire converts a canonical pair (e.g. XRPGBP) to its wire form
// (XRP/GBP). Unknown pairs pass through unchanged, as required for
// tickers outside the known GBP set.
func ToWire(canonical string) string {
	if wire, ok := canonicalToWire[canonical]; ok {
		return wire
	}
	return canonical
}

// ToCanonical converts a wire pair (e.g. XRP/GBP) to the internal
// canonical uppercase form (XRPGBP). Unknown pairs pass through
// unchanged (caller should log a warning).
func ToCanonical(wire string) string {
	if canonical, ok := wireToCanonical[wire]; ok {
		return canonical
	}
	return wire
}

// KnownPair reports whether canonical is in the built-in mapping table.
func KnownPair(canonical string) bool {
	_, ok := canonicalToWire[canonical]
	return ok
}
