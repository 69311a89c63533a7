package bulk

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mgajardo/backdesk/internal/domain/customer"
)

// Columns is the canonical CSV layout shared by import and export.
var Columns = []string{"first_name", "last_name", "email", "phone", "tax_id", "status"}

// headerAliases maps accepted header spellings onto canonical column
// names. The Spanish forms match files produced by the legacy desktop
// client.
var headerAliases = map[string]string{
	"first_name":     "first_name",
	"nombre":         "first_name",
	"last_name":      "last_name",
	"apellido":       "last_name",
	"email":          "email",
	"correo":         "email",
	"phone":          "phone",
	"telefono":       "phone",
	"tax_id":         "tax_id",
	"identificacion": "tax_id",
	"status":         "status",
	"estado":         "status",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one importable record and the physical line it starts on.
type Row struct {
	Line  int
	Draft customer.CreateRequest
}

// Scan is the outcome of parsing an import file. RowsScanned counts
// every data record read, including blank and rejected ones.
type Scan struct {
	RowsScanned  int
	SkippedBlank int
	RowErrors    []RowError
	Valid        []Row
}

// ParseCustomers reads a customer import file and validates every data
// row: field rules, column count and duplicate emails within the file.
// Validation never stops at the first bad row. Problems with the file
// itself, a missing header or an unparseable record, surface as a
// *customer.ValidationError on the "file" field.
func ParseCustomers(data []byte) (*Scan, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fileError("is missing a header row")
	}
	if err != nil {
		return nil, parseError(err)
	}
	columns, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}

	scan := &Scan{}
	seenEmails := make(map[string]int)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		line, _ := reader.FieldPos(0)
		scan.RowsScanned++

		if blankRecord(record) {
			scan.SkippedBlank++
			continue
		}
		if len(record) != len(header) {
			scan.RowErrors = append(scan.RowErrors, RowError{
				Row:     line,
				Message: fmt.Sprintf("expected %d columns, found %d", len(header), len(record)),
			})
			continue
		}

		draft, statusFields := mapRecord(columns, record)
		fields := draftFieldErrors(draft)
		fields = append(fields, statusFields...)

		emailKey := strings.ToLower(draft.Email)
		if len(fields) == 0 {
			if first, dup := seenEmails[emailKey]; dup {
				fields = append(fields, customer.FieldError{
					Field:   "email",
					Message: fmt.Sprintf("duplicates row %d in this file", first),
				})
			}
		}
		if len(fields) > 0 {
			scan.RowErrors = append(scan.RowErrors, rowError(line, fields))
			continue
		}

		seenEmails[emailKey] = line
		scan.Valid = append(scan.Valid, Row{Line: line, Draft: draft})
	}
	return scan, nil
}

// WriteCustomers serializes records to CSV in the canonical column
// order, header included.
func WriteCustomers(w io.Writer, records []customer.Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, c := range records {
		row := []string{c.FirstName, c.LastName, c.Email, c.Phone, c.TaxID, string(c.Status)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// resolveHeader maps each header cell to its canonical column, "" for
// columns we do not know (the legacy id column among them). All six
// canonical columns must be present exactly once.
func resolveHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(Columns))
	for i, cell := range header {
		canon, ok := headerAliases[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		if seen[canon] {
			return nil, fileError(fmt.Sprintf("has a duplicate %q column", canon))
		}
		seen[canon] = true
		columns[i] = canon
	}

	var missing []string
	for _, want := range Columns {
		if !seen[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fileError("is missing columns: " + strings.Join(missing, ", "))
	}
	return columns, nil
}

func mapRecord(columns []string, record []string) (customer.CreateRequest, []customer.FieldError) {
	var draft customer.CreateRequest
	var fields []customer.FieldError
	for i, cell := range record {
		value := strings.TrimSpace(cell)
		switch columns[i] {
		case "first_name":
			draft.FirstName = value
		case "last_name":
			draft.LastName = value
		case "email":
			draft.Email = value
		case "phone":
			draft.Phone = value
		case "tax_id":
			draft.TaxID = value
		case "status":
			status, ok := customer.NormalizeStatus(value)
			if !ok {
				fields = append(fields, customer.FieldError{
					Field:   "status",
					Message: fmt.Sprintf("unrecognized status %q", value),
				})
				continue
			}
			draft.Status = status
		}
	}
	return draft, fields
}

func draftFieldErrors(draft customer.CreateRequest) []customer.FieldError {
	err := customer.ValidateCreate(draft)
	if err == nil {
		return nil
	}
	var verr *customer.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return []customer.FieldError{{Field: "row", Message: err.Error()}}
}

// rowError folds the field problems of one row into a single entry.
func rowError(line int, fields []customer.FieldError) RowError {
	if len(fields) == 1 {
		return RowError{Row: line, Field: fields[0].Field, Message: fields[0].Message}
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Error()
	}
	return RowError{Row: line, Message: strings.Join(parts, "; ")}
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func fileError(msg string) error {
	return &customer.ValidationError{Fields: []customer.FieldError{{Field: "file", Message: msg}}}
}

func parseError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return fileError(fmt.Sprintf("is malformed near line %d: %v", perr.Line, perr.Err))
	}
	return fileError("is malformed: " + err.Error())
}
