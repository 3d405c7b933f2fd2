package types

import "github.com/google/uuid"

// DefaultCustomerName is used when a sale is not tied to a known customer.
const DefaultCustomerName = "Walk-in"

// CustomerSnapshot is the customer reference frozen onto an order at
// creation time. Stored as jsonb; the customer master lives elsewhere.
type CustomerSnapshot struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name"`
}

// NormalizedCustomer returns a snapshot with the walk-in default applied.
func NormalizedCustomer(id *uuid.UUID, name string) CustomerSnapshot {
	if name == "" {
		name = DefaultCustomerName
	}
	return CustomerSnapshot{ID: id, Name: name}
}
