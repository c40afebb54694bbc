// Package store provides in-memory payroll stores.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements payroll.Store. The (employee id, date) constraint and
// the atomicity of InsertTimeRecords match the SQL stores.
type Memory struct {
	mu      sync.RWMutex
	records []payroll.TimeRecord
	keys    map[dayKey]string // -> report id
	report  []payroll.PayrollRow
}

type dayKey struct {
	EmployeeID string
	Date       string
}

func keyOf(r payroll.TimeRecord) dayKey {
	return dayKey{EmployeeID: r.EmployeeID, Date: r.StorageDate()}
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{keys: make(map[dayKey]string)}
}

// ReportExists reports whether any record carries reportID.
func (m *Memory) ReportExists(_ context.Context, reportID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.ReportID == reportID {
			return true, nil
		}
	}
	return false, nil
}

// InsertTimeRecords adds all records or none.
func (m *Memory) InsertTimeRecords(_ context.Context, records []payroll.TimeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check every key first, including duplicates inside the batch.
	batch := make(map[dayKey]bool, len(records))
	for _, r := range records {
		k := keyOf(r)
		if _, ok := m.keys[k]; ok || batch[k] {
			return fmt.Errorf("%w: employee %s on %s", payroll.ErrDuplicateKey, k.EmployeeID, k.Date)
		}
		batch[k] = true
	}

	for _, r := range records {
		m.keys[keyOf(r)] = r.ReportID
		m.records = append(m.records, r)
	}
	return nil
}

// DeleteReport removes every record carrying reportID.
func (m *Memory) DeleteReport(_ context.Context, reportID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var removed int64
	for _, r := range m.records {
		if r.ReportID == reportID {
			delete(m.keys, keyOf(r))
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed, nil
}

// LoadTimeRecords returns every record ordered by employee id, then date.
func (m *Memory) LoadTimeRecords(_ context.Context) ([]payroll.TimeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sorted(m.records, func(payroll.TimeRecord) bool { return true }), nil
}

// LoadReportRecords returns the records of one submission.
func (m *Memory) LoadReportRecords(_ context.Context, reportID string) ([]payroll.TimeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sorted(m.records, func(r payroll.TimeRecord) bool { return r.ReportID == reportID }), nil
}

func sorted(records []payroll.TimeRecord, keep func(payroll.TimeRecord) bool) []payroll.TimeRecord {
	out := make([]payroll.TimeRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// ReplaceReport upserts rows by (employee id, pay period) into an empty report.
func (m *Memory) ReplaceReport(_ context.Context, rows []payroll.PayrollRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	type periodKey struct{ EmployeeID, PayPeriod string }
	index := make(map[periodKey]int, len(rows))
	report := make([]payroll.PayrollRow, 0, len(rows))

	for _, row := range rows {
		k := periodKey{row.EmployeeID, row.PayPeriod}
		if i, ok := index[k]; ok {
			report[i].AmountPaid = row.AmountPaid
			continue
		}
		index[k] = len(report)
		report = append(report, row)
	}
	m.report = report
	return nil
}

// LoadReport returns the report in insertion order.
func (m *Memory) LoadReport(_ context.Context) ([]payroll.PayrollRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]payroll.PayrollRow, len(m.report))
	copy(out, m.report)
	return out, nil
}
