package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestWriteAttempts(t *testing.T) {
	codeID := uint(1)
	at := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	attempts := []models.PlayAttempt{
		{ID: 1, Result: models.PlayResultInvalid, Input: "0000", CreatedAt: at},
		{ID: 2, LidCodeID: &codeID, LidCode: &models.LidCode{ID: 1, Code: "2026"}, Result: models.PlayResultWin, Input: "2026", CreatedAt: at},
	}
	counts := map[models.PlayResult]int64{
		models.PlayResultWin:     1,
		models.PlayResultInvalid: 1,
	}

	var buf bytes.Buffer
	if err := WriteAttempts(&buf, attempts, counts); err != nil {
		t.Fatalf("WriteAttempts() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(AttemptsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", AttemptsSheet, err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "" || rows[1][3] != "invalid" {
		t.Errorf("invalid row = %v", rows[1])
	}
	if rows[2][1] != "2026-01-01 12:30:00" || rows[2][2] != "2026" || rows[2][3] != "win" {
		t.Errorf("win row = %v", rows[2])
	}

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", SummarySheet, err)
	}
	if len(summary) != 3 {
		t.Fatalf("len(summary) = %d, want 3", len(summary))
	}
	if summary[1][0] != "invalid" || summary[1][1] != "1" {
		t.Errorf("summary row = %v", summary[1])
	}
	if summary[2][0] != "win" || summary[2][1] != "1" {
		t.Errorf("summary row = %v", summary[2])
	}
}
