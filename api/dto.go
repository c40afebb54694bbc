/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON and CSV shapes returned to clients, decoupled from the
  payroll types. Amounts are rendered with two decimals.

TYPES:
  UploadResponse:  Result of a timefile upload
  PayrollRowDTO:   One payroll report line (JSON and CSV)
  TimeRecordDTO:   One stored attendance entry, client date format
  ErrorResponse:   Error body

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import "github.com/warp/payroll-engine/payroll"

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// UploadResponse is returned after a timefile was ingested.
type UploadResponse struct {
	Message     string `json:"message"`
	RunID       string `json:"run_id"`
	ReportID    string `json:"report_id"`
	Records     int    `json:"records"`
	PayrollRows int    `json:"payroll_rows"`
}

// PayrollRowDTO is one line of the payroll report.
type PayrollRowDTO struct {
	EmployeeID string `json:"employee_id" csv:"Employee ID"`
	PayPeriod  string `json:"pay_period" csv:"Pay Period"`
	AmountPaid string `json:"amount_paid" csv:"Amount Paid"`
}

// TimeRecordDTO is one stored attendance entry with the pay period it is
// paid in.
type TimeRecordDTO struct {
	Date        string `json:"date"`
	EmployeeID  string `json:"employee_id"`
	HoursWorked string `json:"hours_worked"`
	JobGroup    string `json:"job_group"`
	PayPeriod   string `json:"pay_period"`
}

// TimefileResponse lists the records of one submission.
type TimefileResponse struct {
	ReportID string          `json:"report_id"`
	Records  []TimeRecordDTO `json:"records"`
}

// HealthResponse reports service status.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// NewPayrollRowDTOs renders report rows for clients.
func NewPayrollRowDTOs(rows []payroll.PayrollRow) []PayrollRowDTO {
	dtos := make([]PayrollRowDTO, len(rows))
	for i, r := range rows {
		dtos[i] = PayrollRowDTO{
			EmployeeID: r.EmployeeID,
			PayPeriod:  r.PayPeriod,
			AmountPaid: r.AmountPaid.StringFixed(2),
		}
	}
	return dtos
}

func toTimeRecordDTOs(records []payroll.TimeRecord) []TimeRecordDTO {
	dtos := make([]TimeRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = TimeRecordDTO{
			Date:        r.ClientDate(),
			EmployeeID:  r.EmployeeID,
			HoursWorked: r.HoursWorked.String(),
			JobGroup:    string(r.JobGroup),
			PayPeriod:   payroll.PayPeriodOf(r.Date).String(),
		}
	}
	return dtos
}
