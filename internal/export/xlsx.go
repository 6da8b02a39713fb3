package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-mocktest/internal/exam"
)

const SheetName = "Ranking"

var header = []interface{}{"Rank", "Phone", "Score", "Participants"}

// WriteLeaderboard renders entries as a single-sheet workbook.
func WriteLeaderboard(w io.Writer, p exam.Paper, entries []exam.RankEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetName)
	if err := f.SetCellValue(SheetName, "A1", fmt.Sprintf("%s (%s, v%d)", p.Title, p.ID, p.Version)); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, "A2", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "D2", bold); err != nil {
		return err
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		row := []interface{}{e.Rank, e.UserPhone, e.Score, e.TotalParticipants}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 18); err != nil {
		return err
	}
	return f.Write(w)
}
