package httpapi

import (
	"fmt"

	"owl-history/internal/models"

	"github.com/xuri/excelize/v2"
)

// HistoryExportHeader 导出表头（每条读数一行）
var HistoryExportHeader = []string{
	"Node ID",
	"Tag Name",
	"Time",
	"Actual Time",
	"Val Double",
	"Val Int",
	"Val Uint",
	"Val Bool",
	"Val String",
	"Quality",
	"Record Type",
	"App ID",
}

const historySheetName = "Node History"

// GenerateHistoryExport 生成节点历史导出 Excel 文件
// histories 为空时只生成表头
func GenerateHistoryExport(histories []models.NodeHistory) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(historySheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, 0, len(HistoryExportHeader))
	for _, h := range HistoryExportHeader {
		header = append(header, h)
	}
	if err := f.SetSheetRow(historySheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(HistoryExportHeader))
	if err != nil {
		return nil, fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetCellStyle(historySheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(historySheetName, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	// Time / Actual Time / App ID 较长
	for _, col := range []string{"C", "D", "L"} {
		if err := f.SetColWidth(historySheetName, col, col, 32); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	row := 2 // 第1行是表头
	for _, h := range histories {
		for _, item := range h.History {
			values := []interface{}{
				h.NodeID,
				h.TagName,
				item.Time,
				cellValue(item.ActualTime),
				cellValue(item.ValDouble),
				cellValue(item.ValInt),
				cellValue(item.ValUint),
				cellValue(item.ValBool),
				cellValue(item.ValString),
				cellValue(item.Quality),
				cellValue(item.RecordType),
				cellValue(item.AppID),
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetSheetRow(historySheetName, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue 解引用可空字段；nil 写成空单元格
func cellValue[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
