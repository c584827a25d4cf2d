package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/leadharvest/scrape/pkg/models"
)

// xlsxSheet is the results sheet name.
const xlsxSheet = "Companies"

// xlsxHeader fixes the column order of the workbook.
var xlsxHeader = []string{
	"Legal Name", "City", "Province", "Region", "Address", "Phone", "Email",
	"Website", "Domain", "CIF", "CNAE", "Industry", "Employees", "Summary",
	"Source Portal", "Source URL",
}

// XLSXSink collects records into an XLSX workbook written on Close.
type XLSXSink struct {
	path  string
	f     *excelize.File
	row   int
	count int
	err   error
}

// NewXLSX prepares a workbook sink targeting path. The file is only
// written when Close is called.
func NewXLSX(path string) *XLSXSink {
	f := excelize.NewFile()
	s := &XLSXSink{path: path, f: f, row: 1}

	sheet, err := f.NewSheet(xlsxSheet)
	if err != nil {
		s.err = err
		return s
	}
	f.SetActiveSheet(sheet)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		s.err = err
		return s
	}
	s.err = s.writeRow(xlsxHeader)
	return s
}

// Emit appends one record row.
func (s *XLSXSink) Emit(rec models.Record) error {
	if s.err != nil {
		return s.err
	}
	err := s.writeRow([]string{
		rec.LegalName, rec.City, rec.Province, rec.Region, rec.Address,
		rec.Phone, rec.Email, rec.WebsiteURL, rec.Domain, rec.CIF,
		rec.CNAECode, rec.Industry, rec.EmployeeCount, rec.Summary,
		rec.SourcePortal, rec.SourceURL,
	})
	if err != nil {
		s.err = err
		return err
	}
	s.count++
	return nil
}

func (s *XLSXSink) writeRow(cells []string) error {
	for col, val := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, s.row)
		if err != nil {
			return err
		}
		if err := s.f.SetCellValue(xlsxSheet, name, val); err != nil {
			return err
		}
	}
	s.row++
	return nil
}

// Count reports how many records were emitted.
func (s *XLSXSink) Count() int { return s.count }

// Close writes the workbook to disk.
func (s *XLSXSink) Close() error {
	defer s.f.Close()
	if s.err != nil {
		return s.err
	}
	if err := s.f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
