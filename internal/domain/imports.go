package domain

// ImportResult aggregates the outcome of one reconciliation call.
type ImportResult struct {
	Imported int        `json:"imported"`
	Updated  int        `json:"updated"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`

	// CategoryCache is returned by chunked imports only.
	CategoryCache []CategoryRef `json:"categoryCache,omitempty"`
}

// RowError describes one failed feed row.
type RowError struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Add merges other into r, shifting its row indexes by offset. At most
// maxErrors entries are kept in Errors; Failed keeps counting.
func (r *ImportResult) Add(other *ImportResult, offset, maxErrors int) {
	r.Imported += other.Imported
	r.Updated += other.Updated
	r.Failed += other.Failed
	for _, e := range other.Errors {
		if maxErrors > 0 && len(r.Errors) >= maxErrors {
			break
		}
		e.Index += offset
		r.Errors = append(r.Errors, e)
	}
}
