package entity

// Product is a read-only snapshot from the catalog. Prices are integer CLP.
type Product struct {
	ID              int    `json:"id"`
	SKU             string `json:"sku"`
	Nombre          string `json:"nombre"`
	ListPrice       int64  `json:"list_price"`
	DiscountedPrice int64  `json:"discounted_price"`
	Stock           int    `json:"stock"`
}

// NetPrice is the effective unit price: the discounted price when one is set,
// the list price otherwise.
func (p *Product) NetPrice() int64 {
	if p.DiscountedPrice > 0 {
		return p.DiscountedPrice
	}
	return p.ListPrice
}
