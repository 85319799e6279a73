package tableio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/xxxsen/licitarag/internal/model"
	"github.com/xxxsen/licitarag/internal/pkg/brnum"
)

const sheetName = "Itens"

// WriteExcel writes one sheet with the table. Money columns that parse as
// Brazilian numbers are stored as numeric cells.
func WriteExcel(w io.Writer, t *model.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	numeric := make(map[string]bool)
	for _, c := range t.Columns {
		numeric[c] = isMoneyColumn(c)
	}
	for r, row := range t.Rows {
		values := make([]interface{}, len(t.Columns))
		for i, c := range t.Columns {
			v := row[c]
			if numeric[c] {
				if n, err := brnum.Parse(v); err == nil {
					values[i] = n
					continue
				}
			}
			values[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// ReadExcel reads the first sheet back as strings.
func ReadExcel(r io.Reader) (*model.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx has no header")
	}
	t := model.NewTable(rows[0]...)
	for _, record := range rows[1:] {
		row := make(model.Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Append(row)
	}
	return t, nil
}

func EncodeExcel(t *model.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteExcel(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
