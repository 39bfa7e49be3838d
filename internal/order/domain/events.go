package domain

const (
	EventOrderCreated = "OrderCreated"
	EventOrderPaid    = "OrderPaid"
)

type OrderCreated struct {
	OrderID         string `json:"order_id"`
	CustomerEmail   string `json:"customer_email"`
	ProductID       int64  `json:"product_id"`
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	AmountCents     int64  `json:"amount_cents"`
}

type OrderPaid struct {
	OrderID         string `json:"order_id"`
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	AmountCents     int64  `json:"amount_cents"`
}
