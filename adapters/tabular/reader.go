package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"noema/domain/table"
	"noema/internal/errors"
)

// Loader reads one data file into a DataTable, dispatching on its format
// tag. Parsing correctness is delegated to the format libraries; the loader
// only performs dispatch, header/cell normalization, column typing, and
// error wrapping.
type Loader struct{}

// NewLoader creates a data loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the referenced file. Errors carry UNSUPPORTED_FORMAT for
// unrecognized format tags and LOAD_FAILURE for parse/I-O failures; both
// are fatal to this file only.
func (l *Loader) Load(file table.TableFile) (*table.DataTable, error) {
	if _, err := os.Stat(file.Path); err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}

	switch file.Format {
	case table.FormatDelimited:
		return l.readCSV(file)
	case table.FormatSpreadsheet, table.FormatSpreadsheetLegacy:
		return l.readWorkbook(file)
	case table.FormatRecords:
		return l.readRecords(file)
	default:
		return nil, errors.UnsupportedFormat(file.Path)
	}
}

func (l *Loader) readCSV(file table.TableFile) (*table.DataTable, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are padded against the header

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}
	log.Printf("[Loader] CSV file read in %.2fms (%d rows)",
		float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return l.buildTable(file, rows)
}

func (l *Loader) readWorkbook(file table.TableFile) (*table.DataTable, error) {
	f, err := excelize.OpenFile(file.Path)
	if err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}
	defer f.Close()

	// Sheet1 when present, otherwise the first sheet: unattended runs
	// should not fail on sheet naming.
	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.LoadFailure(file.Path, fmt.Errorf("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}
	log.Printf("[Loader] sheet %q read in %.2fms (%d rows)",
		sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return l.buildTable(file, rows)
}

// readRecords reads an array-of-objects file. Column order is the
// first-seen key order across the array, so reports stay stable without
// sorting keys.
func (l *Loader) readRecords(file table.TableFile) (*table.DataTable, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}

	var headers []string
	index := make(map[string]int)
	var records []map[string]string

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, errors.LoadFailure(file.Path, err)
		}
		record := make(map[string]string)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, errors.LoadFailure(file.Path, err)
			}
			key := keyTok.(string)
			if _, seen := index[key]; !seen {
				index[key] = len(headers)
				headers = append(headers, key)
			}

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, errors.LoadFailure(file.Path, err)
			}
			record[key] = rawToCell(raw)
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return nil, errors.LoadFailure(file.Path, err)
		}
		records = append(records, record)
	}

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, headers)
	for _, record := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = record[h]
		}
		rows = append(rows, row)
	}

	return l.buildTable(file, rows)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// rawToCell flattens one JSON value to its cell string. null becomes the
// empty cell (missing).
func rawToCell(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return string(raw)
	}
}

// buildTable converts raw string rows into a typed DataTable. The first
// row is the header; cells are trimmed; rows shorter than the header are
// padded with empty (missing) cells.
func (l *Loader) buildTable(file table.TableFile, rows [][]string) (*table.DataTable, error) {
	if len(rows) < 2 {
		return nil, errors.LoadFailure(file.Path,
			fmt.Errorf("file must have at least a header row and one data row"))
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = trim(h)
	}

	cells := make([][]string, len(headers))
	for i := range cells {
		cells[i] = make([]string, 0, len(rows)-1)
	}
	for _, row := range rows[1:] {
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = trim(row[i])
			}
			cells[i] = append(cells[i], cell)
		}
	}

	columns := make([]table.Column, 0, len(headers))
	for i, name := range headers {
		columns = append(columns, typeColumn(name, cells[i]))
	}

	t, err := table.New(columns)
	if err != nil {
		return nil, errors.LoadFailure(file.Path, err)
	}

	log.Printf("[Loader] %s processed (%d columns, %d rows)",
		file.Name(), t.ColumnCount(), t.RowCount())
	return t, nil
}

// typeColumn decides the column kind once, at load time. A column is
// numeric when at least numericThreshold of its non-empty cells coerce;
// fully empty columns are numeric-all-missing, matching how dataframe
// libraries type them.
func typeColumn(name string, cells []string) table.Column {
	nonEmpty := 0
	coercible := 0
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, ok := CoerceNumeric(cell); ok {
			coercible++
		}
	}

	numeric := nonEmpty == 0 || float64(coercible)/float64(nonEmpty) >= numericThreshold
	if !numeric {
		return table.TextColumn(name, cells)
	}

	numbers := make([]float64, len(cells))
	missing := make([]bool, len(cells))
	for i, cell := range cells {
		if v, ok := CoerceNumeric(cell); ok {
			numbers[i] = v
		} else {
			missing[i] = true
		}
	}
	return table.NumericColumn(name, numbers, missing)
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
