// Package report exports the play audit log as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	AttemptsSheet = "Attempts"
	SummarySheet  = "Summary"
)

var attemptHeader = []interface{}{"ID", "Time (UTC)", "Code", "Result", "Input"}

// WriteAttempts writes one row per attempt plus a per-result summary.
func WriteAttempts(w io.Writer, attempts []models.PlayAttempt, counts map[models.PlayResult]int64) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AttemptsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(AttemptsSheet, "A1", &attemptHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, a := range attempts {
		code := ""
		if a.LidCode != nil {
			code = a.LidCode.Code
		}
		row := []interface{}{
			a.ID,
			a.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			code,
			string(a.Result),
			a.Input,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(AttemptsSheet, cell, &row); err != nil {
			return fmt.Errorf("write attempt %d: %w", a.ID, err)
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &[]interface{}{"Result", "Count"}); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	results := make([]string, 0, len(counts))
	for result := range counts {
		results = append(results, string(result))
	}
	sort.Strings(results)
	for i, result := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{result, counts[models.PlayResult(result)]}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
