package services

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

const timesheetSheet = "Timesheet"

var timesheetHeader = []any{
	"Check-in ID", "Assignment ID", "Job ID", "Job", "Staff ID", "Staff", "Role",
	"Check-in", "Check-out", "Worked minutes", "Hourly rate",
}

// WriteTimesheetXLSX renders closed shifts as a single-sheet workbook.
func WriteTimesheetXLSX(w io.Writer, rows []TimesheetRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", timesheetSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if err := f.SetSheetRow(timesheetSheet, "A1", &timesheetHeader); err != nil {
		return errors.Wrap(err, "write header")
	}

	totalMinutes := 0
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		values := []any{
			r.CheckInID, r.AssignmentID, r.JobID, r.JobTitle, r.UserID, r.StaffName, r.Role,
			r.CheckInTime.Format("2006-01-02 15:04"), r.CheckOutTime.Format("2006-01-02 15:04"),
			r.WorkedMinutes, r.HourlyRate,
		}
		if err := f.SetSheetRow(timesheetSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
		totalMinutes += r.WorkedMinutes
	}

	totalCell, err := excelize.CoordinatesToCellName(9, len(rows)+2)
	if err != nil {
		return errors.Wrap(err, "cell name")
	}
	total := []any{"Total", totalMinutes}
	if err := f.SetSheetRow(timesheetSheet, totalCell, &total); err != nil {
		return errors.Wrap(err, "write total")
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
