package domain

// Operator is the authenticated atelier owner using the admin surface.
type Operator struct {
	Email string
}
