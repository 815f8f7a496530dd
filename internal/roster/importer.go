package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"qrattend/internal/metrics"
)

// CSV header names of the roster export.
const (
	ColEnrollment = "Enrollment Number"
	ColName       = "Student Name"
	ColClassroom  = "Classroom Number"
	ColClassName  = "Class Name"
	ColDivision   = "Division"
)

// Row is one raw roster line.
type Row struct {
	Line         int
	EnrollmentNo string
	Name         string
	Classroom    string
	ClassName    string
	Division     string
}

// ImportResult counts what happened to each row. Inserted is the number of
// rows accepted into the roster.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Existing int `json:"existing"`
	Invalid  int `json:"invalid"`
	Failed   int `json:"failed"`
}

// Total is the number of rows seen.
func (r ImportResult) Total() int {
	return r.Inserted + r.Existing + r.Invalid + r.Failed
}

// Importer reconciles roster snapshots into the roster store. It only ever
// inserts; attendance and credentials are never touched.
type Importer struct {
	repo *Repository
}

// NewImporter creates an importer.
func NewImporter(repo *Repository) *Importer {
	return &Importer{repo: repo}
}

// Reconcile inserts every row whose enrollment number is not yet on the
// roster. Rows already present are skipped unchanged, rows without an
// enrollment number are skipped as invalid, and a failing row never aborts
// the batch.
func (imp *Importer) Reconcile(ctx context.Context, rows []Row) ImportResult {
	var res ImportResult
	for _, row := range rows {
		if row.EnrollmentNo == "" {
			res.Invalid++
			metrics.RosterImportRows.WithLabelValues("invalid").Inc()
			continue
		}
		inserted, err := imp.repo.InsertIfAbsent(ctx, Student{
			EnrollmentNo: row.EnrollmentNo,
			Name:         row.Name,
			Classroom:    row.Classroom,
			ClassName:    row.ClassName,
			Division:     row.Division,
		})
		switch {
		case err != nil:
			res.Failed++
			metrics.RosterImportRows.WithLabelValues("failed").Inc()
			log.Printf("roster import: line %d (%s) failed: %v", row.Line, row.EnrollmentNo, err)
		case inserted:
			res.Inserted++
			metrics.RosterImportRows.WithLabelValues("inserted").Inc()
		default:
			res.Existing++
			metrics.RosterImportRows.WithLabelValues("existing").Inc()
		}
	}
	return res
}

// ImportCSV parses and reconciles a roster export.
func (imp *Importer) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	return imp.Reconcile(ctx, rows), nil
}

// ImportFile imports the roster file at path.
func (imp *Importer) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return imp.ImportCSV(ctx, f)
}

// ParseCSV reads a header row and the records under it. Columns are matched
// by name, so their order does not matter. Broken records are kept with
// whatever fields could be read; Reconcile decides what to do with them.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("roster csv is empty")
		}
		return nil, fmt.Errorf("read roster header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index[strings.ToLower(ColEnrollment)]; !ok {
		return nil, fmt.Errorf("roster csv has no %q column", ColEnrollment)
	}
	field := func(record []string, col string) string {
		i, ok := index[strings.ToLower(col)]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.Printf("roster import: skipping malformed line %d: %v", perr.Line, perr.Err)
				rows = append(rows, Row{Line: perr.Line})
				continue
			}
			return rows, fmt.Errorf("read roster: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, Row{
			Line:         line,
			EnrollmentNo: field(record, ColEnrollment),
			Name:         field(record, ColName),
			Classroom:    field(record, ColClassroom),
			ClassName:    field(record, ColClassName),
			Division:     field(record, ColDivision),
		})
	}
	return rows, nil
}
