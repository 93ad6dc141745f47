package feed

import "github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"

// MergeAvailability collapses rows from several feeds that share an
// externalId into the first of them. The merged row is active when any of
// the rows is; a row that does not state isActive counts as active. Rows
// without a usable externalId pass through unchanged.
func MergeAvailability(rows []domain.FeedProduct) []domain.FeedProduct {
	merged := make([]domain.FeedProduct, 0, len(rows))
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		if !row.ExternalID.Usable() {
			merged = append(merged, row)
			continue
		}
		at, ok := seen[row.ExternalID.Value]
		if !ok {
			seen[row.ExternalID.Value] = len(merged)
			merged = append(merged, row)
			continue
		}
		if active(merged[at].IsActive) || active(row.IsActive) {
			t := true
			merged[at].IsActive = &t
		}
	}
	return merged
}

func active(flag *bool) bool {
	return flag == nil || *flag
}
