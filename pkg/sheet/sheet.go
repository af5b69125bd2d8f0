// Package sheet 电子表格读写：.xlsx 走 excelize，旧版 .xls 走 extrame/xls
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoWorksheet       = errors.New("Nessun foglio di lavoro nel file")
	ErrEmptyWorksheet    = errors.New("Il foglio di lavoro è vuoto")
	ErrUnsupportedFormat = errors.New("Formato file non supportato: solo .xlsx / .xls")
)

// maxXLSCols BIFF8 单表列数上限
const maxXLSCols = 256

// ReadRows 读取首个工作表的全部行（含表头），按扩展名选择解析器
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xls" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	if ext == ".xls" {
		return readXLS(data)
	}
	return readXLSX(data)
}

// readXLS 只读取首个工作表，与 .xlsx 一致；缺失的行保留为空行以保持行号
func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("解析 xls 失败: %w", err)
	}
	if workbook == nil || workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	ws := workbook.GetSheet(0)
	if ws == nil {
		return nil, ErrNoWorksheet
	}

	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		rows = append(rows, xlsCells(xlsRow(ws, i)))
	}
	for _, row := range rows {
		if !IsBlankRow(row) {
			return rows, nil
		}
	}
	return nil, ErrEmptyWorksheet
}

// xlsRow 库中不存在的行为 nil 指针，Row 访问时会 panic
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

// xlsCells 未写 ROW 记录的行 LastCol 为 0，因此按列上限扫描后去掉尾部空单元格
func xlsCells(row *xls.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, maxXLSCols)
	for j := range cells {
		cells[j] = row.Col(j)
	}
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}
	return cells[:end]
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析 xlsx 失败: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, ErrNoWorksheet
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorksheet
	}
	return rows, nil
}

// Cell 安全取单元格并去除首尾空白
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// IsBlankRow 所有单元格均为空白
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ────────────────────── 写出 ──────────────────────

// WriteTable 生成单工作表 .xlsx：首行为加粗表头，其余为数据
func WriteTable(sheetName string, headers []string, rows [][]string, widths []float64) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("删除默认工作表失败: %w", err)
		}
	}

	for i, w := range widths {
		col := colName(i)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("设置列宽失败: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("创建表头样式失败: %w", err)
	}

	for i, h := range headers {
		if err := f.SetCellValue(sheetName, cell(colName(i), 1), h); err != nil {
			return nil, fmt.Errorf("写入表头失败: %w", err)
		}
	}
	if len(headers) > 0 {
		if err := f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle); err != nil {
			return nil, fmt.Errorf("设置表头样式失败: %w", err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			if err := f.SetCellValue(sheetName, cell(colName(c), r+2), v); err != nil {
				return nil, fmt.Errorf("写入第 %d 行失败: %w", r+2, err)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("写入 Excel 失败: %w", err)
	}
	return buf, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
