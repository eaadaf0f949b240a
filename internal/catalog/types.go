package catalog

import "time"

// Product is one catalog entry. MassFactor is kilograms per square metre.
type Product struct {
	Code        int64   `json:"code"`
	Description string  `json:"description"`
	MassFactor  float64 `json:"massFactor"`
}

// Columns records which source headers were matched.
type Columns struct {
	Product     string `json:"product"`
	Factor      string `json:"factor"`
	Description string `json:"description,omitempty"`
}

// RowWarning describes a row that was skipped or defaulted during load.
type RowWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// LoadReport summarises a catalog load so operators can spot bad source data.
type LoadReport struct {
	Source      string       `json:"source"`
	LoadedAt    time.Time    `json:"loadedAt"`
	Columns     Columns      `json:"columns"`
	Rows        int          `json:"rows"`
	Products    int          `json:"products"`
	Skipped     int          `json:"skipped"`
	ZeroFactors []int64      `json:"zeroFactors"`
	Warnings    []RowWarning `json:"warnings"`
}

// Snapshot is an immutable view of a loaded catalog.
type Snapshot struct {
	products map[int64]Product
	report   LoadReport
}

// Lookup returns the product for an exact code match.
func (s *Snapshot) Lookup(code int64) (Product, bool) {
	if s == nil || code == 0 {
		return Product{}, false
	}
	p, ok := s.products[code]
	return p, ok
}

// Len returns the number of products.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.products)
}

// Report returns the load report the snapshot was built with.
func (s *Snapshot) Report() LoadReport {
	if s == nil {
		return LoadReport{}
	}
	return s.report
}
