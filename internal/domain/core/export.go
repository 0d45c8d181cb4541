package core

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Employees"

var exportHeaders = []string{
	"Employee ID", "First Name", "Last Name", "Email", "Phone",
	"Department", "Role", "Access Level", "Status", "Employment Type", "Joining Date",
}

func exportRow(emp Employee) []string {
	joined := ""
	if emp.JoiningDate != nil {
		joined = emp.JoiningDate.Format("2006-01-02")
	}
	return []string{
		emp.ID, emp.FirstName, emp.LastName, emp.Email, emp.Phone,
		emp.DepartmentName, emp.RoleName, string(emp.AccessLevel), emp.Status, emp.EmploymentType, joined,
	}
}

func WriteEmployeesCSV(w io.Writer, employees []Employee) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeaders); err != nil {
		return err
	}
	for _, emp := range employees {
		if err := writer.Write(exportRow(emp)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteEmployeesXLSX(w io.Writer, employees []Employee) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := setRow(f, 1, exportHeaders); err != nil {
		return err
	}
	for i, emp := range employees {
		if err := setRow(f, i+2, exportRow(emp)); err != nil {
			return err
		}
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(exportSheet, cell, &cells)
}
