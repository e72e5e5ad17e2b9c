package domain

import "github.com/shopspring/decimal"

// ProductState replaces the legacy activo/estado boolean flags with an
// explicit lifecycle. A missing state column reads as Active.
type ProductState string

const (
	ProductActive   ProductState = "activo"
	ProductInactive ProductState = "inactivo"
	ProductDeleted  ProductState = "eliminado"
)

type Product struct {
	ID        string
	Title     string
	UnitPrice decimal.Decimal
	State     ProductState
}

// Purchasable reports whether the product can still be added to a cart
// or checked out.
func (p *Product) Purchasable() bool {
	return p.State == ProductActive
}
