package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/KoTeHok22/locus/internal/core/domain"
)

const balanceSheet = "Баланс материалов"

// WriteBalance renders the project's material balance as an XLSX workbook.
// One row per material: delivered, consumed and the remaining quantity.
func WriteBalance(w io.Writer, projectName string, balance []domain.MaterialBalance) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(balanceSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := []any{"Материал", "Ед. изм.", "Поставлено", "Израсходовано", "Остаток"}
	if err := f.SetSheetRow(balanceSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(balanceSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range balance {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		values := []any{row.MaterialName, row.Unit, row.Delivered, row.Consumed, row.Available}
		if err := f.SetSheetRow(balanceSheet, cell, &values); err != nil {
			return fmt.Errorf("write balance row: %w", err)
		}
	}

	if err := f.SetColWidth(balanceSheet, "A", "A", 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if projectName != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: projectName}); err != nil {
			return fmt.Errorf("set workbook title: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
