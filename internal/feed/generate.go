package feed

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
)

var (
	genBrands    = []string{"Acme", "Roam", "Northwind", "Kestrel", "Lumen", "Tidewater", "Ironbark", "Juniper"}
	genColors    = []string{"Black", "Navy", "Olive", "Sand", "Red", "Grey", "Teal", "White"}
	genMaterials = []string{"Cotton", "Wool", "Linen", "Canvas", "Leather", "Cork", "Recycled"}
	genSizes     = []string{"S", "M", "L", "XL"}
	genTags      = []string{"new", "eco", "bestseller", "limited", "gift"}
)

type genCategory struct {
	top    string
	leaves []string
	styles []string
}

var genCategories = []genCategory{
	{top: "Apparel", leaves: []string{"Jackets", "Shirts", "Trousers"}, styles: []string{"Jacket", "Overshirt", "Chinos", "Tee"}},
	{top: "Fitness", leaves: []string{"Mats", "Recovery"}, styles: []string{"Yoga Mat", "Foam Roller", "Resistance Band"}},
	{top: "Travel", leaves: []string{"Bags", "Accessories"}, styles: []string{"Backpack", "Duffel", "Packing Cube", "Wash Bag"}},
	{top: "Home", leaves: []string{"Textiles"}, styles: []string{"Throw", "Cushion Cover", "Table Runner"}},
}

// Generate builds n synthetic feed rows for load testing imports. The same
// seed always yields the same rows. Names repeat across rows, so imports of
// generated feeds exercise slug suffixing.
func Generate(n int, seed uint64) []domain.FeedProduct {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rows := make([]domain.FeedProduct, 0, n)

	for i := range n {
		cat := genCategories[rng.IntN(len(genCategories))]
		leaf := cat.leaves[rng.IntN(len(cat.leaves))]
		style := cat.styles[rng.IntN(len(cat.styles))]
		color := genColors[rng.IntN(len(genColors))]
		material := genMaterials[rng.IntN(len(genMaterials))]
		sku := fmt.Sprintf("GEN-%06d", i)

		price := float64(500+rng.IntN(29500)) / 100
		stock := rng.IntN(200)
		featured := rng.IntN(10) == 0
		active := rng.IntN(20) != 0

		row := domain.FeedProduct{
			Name:        fmt.Sprintf("%s %s %s", color, material, style),
			Description: fmt.Sprintf("%s %s in %s.", material, style, color),
			Price:       &price,
			SKU:         sku,
			ExternalID:  domain.Some(strconv.Itoa(i)),
			Stock:       &stock,
			Brand:       genBrands[rng.IntN(len(genBrands))],
			Tags:        []string{genTags[rng.IntN(len(genTags))]},
			Category:    domain.List(cat.top, leaf),
			Images:      []string{fmt.Sprintf("https://cdn.example.com/products/%s.jpg", sku)},
			IsFeatured:  &featured,
			IsActive:    &active,
			Attributes: map[string][]string{
				"Color":    {color},
				"Material": {material},
			},
		}
		if rng.IntN(4) == 0 {
			compare := price * 1.25
			row.ComparePrice = &compare
		}
		if cat.top == "Apparel" {
			for _, size := range genSizes {
				vstock := rng.IntN(50)
				row.Variants = append(row.Variants, domain.FeedVariant{
					Name:  size,
					SKU:   sku + "-" + size,
					Stock: &vstock,
					Size:  size,
					Color: color,
				})
			}
		}
		rows = append(rows, row)
	}
	return rows
}
