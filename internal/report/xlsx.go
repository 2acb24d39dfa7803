package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/verify"
)

const (
	sheetResults = "Verification"
	sheetSummary = "Summary"
)

// Status cell fills, matching the colors operators already know from the
// spreadsheet reports.
const (
	fillHeader  = "4472C4"
	fillOK      = "C6EFCE"
	fillPartial = "FFEB9C"
	fillError   = "FFC7CE"
)

// WriteXLSX renders the verification report as a styled workbook: one row per
// image with the status cell colored by outcome, plus a summary sheet with
// status and extraction-method counts.
func WriteXLSX(verdicts []verify.Verdict) ([]byte, error) {
	f := excelize.NewFile()

	if _, err := f.NewSheet(sheetResults); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(sheetResults)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{fillHeader}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	statusStyles := map[constants.Bucket]int{}
	for bucket, color := range map[constants.Bucket]string{
		constants.BucketGood:    fillOK,
		constants.BucketRegular: fillPartial,
		constants.BucketBad:     fillError,
	} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return nil, err
		}
		statusStyles[bucket] = id
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetResults, cell, h); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(sheetResults, cell, cell, headerStyle)
	}

	for r, v := range verdicts {
		row := r + 2
		for c, val := range Row(v) {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(sheetResults, cell, val); err != nil {
				return nil, err
			}
		}
		// column B carries the status
		statusCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellStyle(sheetResults, statusCell, statusCell, statusStyles[constants.BucketFor(v.Status)])
	}

	_ = f.SetColWidth(sheetResults, "A", "A", 28) // file
	_ = f.SetColWidth(sheetResults, "B", "B", 14) // status
	_ = f.SetColWidth(sheetResults, "C", "D", 18)
	_ = f.SetColWidth(sheetResults, "E", "F", 32) // emails
	_ = f.SetColWidth(sheetResults, "U", "U", 48) // error

	if err := writeSummary(f, headerStyle, verdicts); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, headerStyle int, verdicts []verify.Verdict) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}

	statusCounts := map[constants.Status]int{}
	methodCounts := map[constants.Method]int{}
	for _, v := range verdicts {
		statusCounts[v.Status]++
		methodCounts[v.Extracted.Method]++
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetSummary, "A1", "VERIFICATION SUMMARY"); err != nil {
		return err
	}
	_ = f.SetCellStyle(sheetSummary, "A1", "A1", titleStyle)

	_ = f.SetCellValue(sheetSummary, "A3", "Status")
	_ = f.SetCellValue(sheetSummary, "B3", "Count")
	_ = f.SetCellStyle(sheetSummary, "A3", "B3", headerStyle)

	row := 4
	for _, s := range []constants.Status{
		constants.StatusOK, constants.StatusOKSimilar, constants.StatusPartial,
		constants.StatusMismatch, constants.StatusNotFound,
	} {
		if statusCounts[s] == 0 {
			continue
		}
		_ = f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), string(s))
		_ = f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), statusCounts[s])
		row++
	}
	_ = f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), "TOTAL")
	_ = f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), len(verdicts))

	row += 3
	_ = f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), "EXTRACTION METHOD")
	_ = f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), titleStyle)
	row++
	for _, m := range []constants.Method{
		constants.MethodLocal, constants.MethodRemote, constants.MethodRemoteFallback,
	} {
		if methodCounts[m] == 0 {
			continue
		}
		_ = f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), string(m))
		_ = f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), methodCounts[m])
		row++
	}

	_ = f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row+2),
		"Generated: "+time.Now().Format("2006-01-02 15:04:05"))
	_ = f.SetColWidth(sheetSummary, "A", "A", 24)
	return nil
}
