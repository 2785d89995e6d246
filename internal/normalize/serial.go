package normalize

import (
	"github.com/xuri/excelize/v2"
)

// MinDateSerial is the smallest spreadsheet serial treated as a calendar date.
// 40000 is 2009-07-06 in the 1900 date system.
const MinDateSerial = 40000

// SerialDate converts a spreadsheet date serial to YYYY-MM-DD.
func SerialDate(serial float64) (string, bool) {
	if serial <= MinDateSerial {
		return "", false
	}
	ts, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return ts.Format("2006-01-02"), true
}
