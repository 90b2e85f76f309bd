package models

// ImportSummary accumulates the outcome of one bulk import batch.
// Errors and Warnings carry row-prefixed messages ("Row N: ...").
type ImportSummary struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	// DistinctProducts counts unique products touched by a pallet
	// listing confirm, regardless of how many lines referenced them.
	DistinctProducts int `json:"distinctProducts,omitempty"`
}

// AddError appends a row-scoped error message.
func (s *ImportSummary) AddError(msg string) { s.Errors = append(s.Errors, msg) }

// AddWarning appends a row-scoped warning message.
func (s *ImportSummary) AddWarning(msg string) { s.Warnings = append(s.Warnings, msg) }

// Merge folds another summary into this one.
func (s *ImportSummary) Merge(other ImportSummary) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Errors = append(s.Errors, other.Errors...)
	s.Warnings = append(s.Warnings, other.Warnings...)
	s.DistinctProducts += other.DistinctProducts
}
