package domain

// OrderType is the maker's stance, the opposite of Alert.Action: a user who
// wants to buy is looking for orders of type OrderTypeBuy.
type OrderType int

const (
	OrderTypeSell OrderType = 0
	OrderTypeBuy  OrderType = 1
)

// Order is one line of a coordinator's book. Numeric fields hold the raw text
// sent by the coordinator; empty means the field was null or missing.
type Order struct {
	ID            string
	Currency      string
	Type          OrderType
	Premium       string
	PaymentMethod string
	HasRange      bool
	MinAmount     string
	MaxAmount     string
	Amount        string
	Source        string
}

type OrderBook struct {
	Source string
	Orders []Order
}

type Match struct {
	Alert       Alert
	Order       Order
	Coordinator string
}
