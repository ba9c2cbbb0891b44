package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantStock holds per size -> color unit counts.
type VariantStock map[string]map[string]int

// Total sums every size/color cell.
func (v VariantStock) Total() int {
	total := 0
	for _, colors := range v {
		for _, units := range colors {
			total += units
		}
	}
	return total
}

// Clone returns a deep copy so mutators never alias the stored document.
func (v VariantStock) Clone() VariantStock {
	if v == nil {
		return nil
	}
	out := make(VariantStock, len(v))
	for size, colors := range v {
		cells := make(map[string]int, len(colors))
		for color, units := range colors {
			cells[color] = units
		}
		out[size] = cells
	}
	return out
}

// ProductVariants is present only for products sold per size/color.
type ProductVariants struct {
	Sizes  []string     `json:"sizes,omitempty"`
	Colors []string     `json:"colors,omitempty"`
	Stock  VariantStock `json:"stock"`
}

// BatchProduct is one product record stored inside a batch document. The
// scalar Stock always equals the variant cell sum when Variants is present.
type BatchProduct struct {
	ID       string           `json:"id"`
	Name     string           `json:"name,omitempty"`
	Price    decimal.Decimal  `json:"price"`
	Stock    int              `json:"stock"`
	Variants *ProductVariants `json:"variants,omitempty"`
}

// Batch is one storage document holding many products. Version is the
// optimistic concurrency token bumped on every committed write.
type Batch struct {
	ID        string         `gorm:"column:id;primaryKey"`
	Products  []BatchProduct `gorm:"column:products;type:jsonb;serializer:json"`
	Version   int64          `gorm:"column:version;not null;default:0"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the collection name the ingestion tooling uses.
func (Batch) TableName() string { return "product_batches" }
