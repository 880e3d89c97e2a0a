package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"skumatch/internal"
)

func ExportRowsToXLSX(rows []internal.LineExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "input_name", "input_code", "input_qty", "input_unit_price",
		"method", "confidence", "requires_review",
		"product_id", "product_code", "product_name", "product_category", "product_list_price",
		"candidate2_name", "candidate2_score",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.LineNo)
		set(2, row.InputName)
		set(3, derefString(row.InputCode))
		set(4, derefFloat(row.InputQty))
		set(5, derefFloat(row.InputUnitPrice))
		set(6, row.Method)
		set(7, row.Confidence)
		set(8, row.RequiresReview)
		set(9, derefInt(row.ProductID))
		set(10, derefString(row.ProductCode))
		set(11, derefString(row.ProductName))
		set(12, derefString(row.ProductCategory))
		set(13, derefFloat(row.ProductListPrice))
		set(14, derefString(row.Candidate2Name))
		set(15, derefFloat(row.Candidate2Score))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
