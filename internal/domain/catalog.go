package domain

// Scope is one store within a tenant. The website association is carried
// through from the scope provider for consumers that need it; this service
// only keys on store. Read-only for this service.
type Scope struct {
	StoreID   int64  `json:"store_id"`
	WebsiteID int64  `json:"website_id"`
	TenantKey string `json:"tenant_key"`
}

// ProductStatus is the item-level enabled flag.
type ProductStatus string

const (
	ProductStatusEnabled  ProductStatus = "enabled"
	ProductStatusDisabled ProductStatus = "disabled"
)

// StockData carries the raw stock fields loaded alongside a product. Used as
// the last fallback when no precomputed or registry value is available.
type StockData struct {
	Qty     float64 `json:"qty"`
	InStock bool    `json:"in_stock"`
}

// Product is a catalog item as seen by the eligibility and drift logic.
type Product struct {
	ID     int64  `json:"id"`
	SKU    string `json:"sku"`
	TypeID string `json:"type_id"`

	// Status is the default-scope status; StatusByStore holds store-level
	// overrides.
	Status        ProductStatus           `json:"status"`
	StatusByStore map[int64]ProductStatus `json:"status_by_store,omitempty"`

	// IsSaleable is the extension-carried availability value, set when the
	// loader already computed it. Nil means "not carried".
	IsSaleable *bool `json:"is_saleable,omitempty"`

	// StockData is the raw stock row loaded with the product, if any.
	StockData *StockData `json:"stock_data,omitempty"`
}

// StatusIn resolves the product status for a store, falling back to the
// default-scope status when no override exists.
func (p *Product) StatusIn(storeID int64) ProductStatus {
	if st, ok := p.StatusByStore[storeID]; ok {
		return st
	}
	return p.Status
}

// IndexType classifies how an attribute is configured to be indexed. The raw
// configuration value is an integer; anything outside the known set maps to
// IndexTypeInvalid.
type IndexType int

const (
	IndexTypeInvalid IndexType = iota
	IndexTypeNone
	IndexTypeIndexable
	IndexTypeSearchable
)

// Raw attribute configuration values as stored in tenant configuration.
const (
	rawIndexNone       int64 = 0
	rawIndexIndexable  int64 = 1
	rawIndexSearchable int64 = 2
)

// IndexTypeOf maps a raw configuration value onto the closed IndexType set.
func IndexTypeOf(raw int64) IndexType {
	switch raw {
	case rawIndexNone:
		return IndexTypeNone
	case rawIndexIndexable:
		return IndexTypeIndexable
	case rawIndexSearchable:
		return IndexTypeSearchable
	default:
		return IndexTypeInvalid
	}
}

func (t IndexType) String() string {
	switch t {
	case IndexTypeNone:
		return "none"
	case IndexTypeIndexable:
		return "indexable"
	case IndexTypeSearchable:
		return "searchable"
	default:
		return "invalid"
	}
}

// Attribute is a catalog attribute as seen by the attribute-level eligibility
// check. IndexAs carries the raw configured value.
type Attribute struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	IndexAs int64  `json:"index_as"`
}
