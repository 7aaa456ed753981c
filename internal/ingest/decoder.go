package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aristath/stockfolio/internal/brokers"
)

// ErrEmptyInput is returned when a decoded file yields zero data rows.
var ErrEmptyInput = errors.New("file contains no data rows")

// Decoder turns a tabular file into a header set and a sequence of rows
// keyed by column name.
type Decoder interface {
	Decode(r io.Reader) (headers []string, rows []brokers.Row, err error)
}

// ForFilename picks a decoder based on the file extension. Anything that is
// not a spreadsheet is treated as CSV.
func ForFilename(name string) Decoder {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return &XLSXDecoder{}
	default:
		return &CSVDecoder{}
	}
}

// CSVDecoder decodes comma-separated exports. The first record is the
// header; empty lines are skipped.
type CSVDecoder struct{}

// Decode implements Decoder.
func (d *CSVDecoder) Decode(r io.Reader) ([]string, []brokers.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyInput
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []brokers.Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if isEmptyRecord(record) {
			continue
		}
		rows = append(rows, recordToRow(headers, record))
	}

	if len(rows) == 0 {
		return nil, nil, ErrEmptyInput
	}
	return headers, rows, nil
}

// XLSXDecoder decodes spreadsheet exports. The first sheet is used, with its
// first row as the header.
type XLSXDecoder struct{}

// Decode implements Decoder.
func (d *XLSXDecoder) Decode(r io.Reader) ([]string, []brokers.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyInput
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, nil, ErrEmptyInput
	}

	headers := records[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []brokers.Row
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		rows = append(rows, recordToRow(headers, record))
	}

	if len(rows) == 0 {
		return nil, nil, ErrEmptyInput
	}
	return headers, rows, nil
}

func recordToRow(headers, record []string) brokers.Row {
	row := make(brokers.Row, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			row[h] = strings.TrimSpace(record[i])
		} else {
			row[h] = ""
		}
	}
	return row
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
