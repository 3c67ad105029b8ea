package enums

import "fmt"

// OrderType classifies how an order entered the restaurant.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeKiosk    OrderType = "kiosk"
	OrderTypeVoice    OrderType = "voice"
)

var validOrderTypes = []OrderType{
	OrderTypeDineIn,
	OrderTypePickup,
	OrderTypeDelivery,
	OrderTypeKiosk,
	OrderTypeVoice,
}

// AllOrderTypes returns every declared order type.
func AllOrderTypes() []OrderType {
	out := make([]OrderType, len(validOrderTypes))
	copy(out, validOrderTypes)
	return out
}

// String implements fmt.Stringer.
func (t OrderType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OrderType.
func (t OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
