package postgres

import (
	"fmt"
	"strings"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/slug"
)

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conditions []string
	args       []any
}

// arg appends v and returns its placeholder.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(cond string) {
	w.conditions = append(w.conditions, cond)
}

func (w *where) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func prefixPattern(s string) string {
	return likeEscaper.Replace(s) + "%"
}

// addFacets appends the relational predicate of every active facet.
func (w *where) addFacets(f domain.Facets) {
	if len(f.Categories) > 0 {
		w.add(fmt.Sprintf(`EXISTS (
			SELECT 1 FROM product_categories pc JOIN categories c ON c.id = pc.category_id
			WHERE pc.product_id = p.id AND (c.slug = ANY(%s) OR lower(c.name) = ANY(%s)))`,
			w.arg(f.Categories), w.arg(lowerAll(f.Categories))))
	}
	if len(f.Brands) > 0 {
		w.add(fmt.Sprintf("lower(p.brand) = ANY(%s)", w.arg(lowerAll(f.Brands))))
	}
	if len(f.Tags) > 0 {
		w.add(fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(p.tags) t WHERE lower(t) = ANY(%s))", w.arg(lowerAll(f.Tags))))
	}
	if f.IsDigital != nil {
		w.add(fmt.Sprintf("p.is_digital = %s", w.arg(*f.IsDigital)))
	}
	if f.IsFeatured != nil {
		w.add(fmt.Sprintf("p.is_featured = %s", w.arg(*f.IsFeatured)))
	}
	if f.MinPrice != nil {
		w.add(fmt.Sprintf("p.price >= %s", w.arg(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		w.add(fmt.Sprintf("p.price <= %s", w.arg(*f.MaxPrice)))
	}
	for _, af := range f.Attributes {
		w.add(fmt.Sprintf(`EXISTS (
			SELECT 1 FROM product_attribute_values pav JOIN attributes a ON a.id = pav.attribute_id
			WHERE pav.product_id = p.id AND (a.slug = %s OR lower(a.name) = %s)
			AND %s = ANY(string_to_array(lower(pav.value), ', ')))`,
			w.arg(slug.Generate(af.Attribute)), w.arg(strings.ToLower(af.Attribute)), w.arg(strings.ToLower(af.Value))))
	}
}

// addText matches name, description, brand and category names by substring
// and tags exactly, all case-insensitively.
func (w *where) addText(text string) {
	pattern := w.arg(containsPattern(text))
	tag := w.arg(strings.ToLower(text))
	w.add(fmt.Sprintf(`(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR p.brand ILIKE %[1]s
		OR EXISTS (SELECT 1 FROM unnest(p.tags) t WHERE lower(t) = %[2]s)
		OR EXISTS (
			SELECT 1 FROM product_categories pc JOIN categories c ON c.id = pc.category_id
			WHERE pc.product_id = p.id AND c.name ILIKE %[1]s))`, pattern, tag))
}

func buildWhere(f repository.ProductFilter) *where {
	w := &where{}
	if !f.IncludeInactive {
		w.add("p.is_active = TRUE")
	}
	if len(f.ExcludeIDs) > 0 {
		w.add(fmt.Sprintf("p.id <> ALL(%s::uuid[])", w.arg(f.ExcludeIDs)))
	}
	w.addFacets(f.Facets)
	if f.Text != "" {
		w.addText(f.Text)
	}
	return w
}

func orderBy(sortBy string) string {
	switch sortBy {
	case domain.SortPriceLow:
		return "p.price ASC, p.created_at DESC, p.id"
	case domain.SortPriceHigh:
		return "p.price DESC, p.created_at DESC, p.id"
	case domain.SortPopular:
		return "(SELECT count(*) FROM reviews r WHERE r.product_id = p.id) DESC, p.created_at DESC, p.id"
	default:
		return "p.created_at DESC, p.id"
	}
}
