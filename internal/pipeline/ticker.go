package pipeline

import (
	"regexp"
	"strings"
)

// Tickers name directories directly under the input and output roots.
var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidTicker reports whether a caller-supplied ticker is a plain directory
// name. Entry points reject anything else before a run is created.
func ValidTicker(t string) bool {
	return tickerPattern.MatchString(t) && t != "." && t != ".."
}

// pathSafe is the weaker check applied to every ticker, including directory
// names found by listing the input root.
func pathSafe(ticker string) bool {
	return ticker != "" && ticker != "." && ticker != ".." && !strings.ContainsAny(ticker, "/\\\x00")
}
