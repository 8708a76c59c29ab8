package domain

// Side direction of a trade.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

const (
	sideStringBuy  = "BUY"
	sideStringSell = "SELL"
)

// String returns the string representation of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return sideStringBuy
	case SideSell:
		return sideStringSell
	default:
		return "UNKNOWN"
	}
}
