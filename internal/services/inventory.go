package services

import (
	"sort"

	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
)

// CodeSummary is the stored state of one configured code. Stored is false
// when the code has no record yet.
type CodeSummary struct {
	Code    string
	Stored  bool
	Status  models.CodeStatus
	Outcome models.Outcome
}

// Inventory reports the stored state of every code the validator accepts,
// ordered by code.
func Inventory(codes *repositories.CodeRepository, validator *security.CodeValidator) ([]CodeSummary, error) {
	configured := validator.Codes()
	sort.Strings(configured)

	out := make([]CodeSummary, 0, len(configured))
	for _, code := range configured {
		record, err := codes.FindByCode(code)
		if err != nil {
			return nil, err
		}
		summary := CodeSummary{Code: code}
		if record != nil {
			summary.Stored = true
			summary.Status = record.Status
			summary.Outcome = record.Outcome
		}
		out = append(out, summary)
	}
	return out, nil
}
