// Package reader loads payment records from payment files.
package reader

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
)

const moduleName = "reader"

// CSVDelimiter separates the columns of a CSV payment file.
const CSVDelimiter = ';'

// FileLoader picks the decoder by file extension: ".xml" files are XML documents, everything else is CSV.
type FileLoader struct{}

// NewFileLoader creates a FileLoader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load reads all payment records of the file at path.
func (l *FileLoader) Load(ctx context.Context, path string) ([]model.PaymentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, exception.KindJob, "failed to open payment file %s", path, err)
	}
	defer f.Close()

	var records []model.PaymentRecord
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		records, err = DecodeXML(f)
	} else {
		records, err = DecodeCSV(f)
	}
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, exception.KindJob, "failed to parse payment file %s", path, err)
	}
	return records, nil
}

var _ port.RecordLoader = (*FileLoader)(nil)

// columnSetters maps lower-cased CSV header names to record fields.
var columnSetters = map[string]func(*model.PaymentRecord, string){
	"docid":           func(r *model.PaymentRecord, v string) { r.DocID = v },
	"amount":          func(r *model.PaymentRecord, v string) { r.Amount = v },
	"currency":        func(r *model.PaymentRecord, v string) { r.Currency = v },
	"debtoraccount":   func(r *model.PaymentRecord, v string) { r.DebtorAccount = v },
	"creditoraccount": func(r *model.PaymentRecord, v string) { r.CreditorAccount = v },
	"creditorname":    func(r *model.PaymentRecord, v string) { r.CreditorName = v },
	"details":         func(r *model.PaymentRecord, v string) { r.Details = v },
}

// DecodeCSV reads a ";"-delimited file whose first row names the columns.
// A docId column is required; unknown columns are ignored and empty lines are skipped.
func DecodeCSV(r io.Reader) ([]model.PaymentRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = CSVDelimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	setters := make([]func(*model.PaymentRecord, string), len(header))
	hasDocID := false
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		setters[i] = columnSetters[key]
		if key == "docid" {
			hasDocID = true
		}
	}
	if !hasDocID {
		return nil, errors.New("missing docId column")
	}

	var records []model.PaymentRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var rec model.PaymentRecord
		for i, value := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&rec, strings.TrimSpace(value))
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

type xmlDocument struct {
	XMLName  xml.Name              `xml:"payments"`
	Payments []model.PaymentRecord `xml:"payment"`
}

// DecodeXML reads a <payments><payment>...</payment></payments> document.
func DecodeXML(r io.Reader) ([]model.PaymentRecord, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Payments, nil
}
