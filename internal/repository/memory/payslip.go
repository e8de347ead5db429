package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/payslip"
)

type PayslipRepository struct {
	mu       sync.RWMutex
	payslips map[string]payslip.Payslip
}

func NewPayslipRepository() *PayslipRepository {
	return &PayslipRepository{payslips: make(map[string]payslip.Payslip)}
}

func payslipKey(castID, storeID string, year, month int) string {
	return fmt.Sprintf("%s|%s|%04d-%02d", castID, storeID, year, month)
}

func (r *PayslipRepository) Upsert(_ context.Context, p payslip.Payslip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payslips[payslipKey(p.CastID, p.StoreID, p.Year, p.Month)] = p
	return nil
}

func (r *PayslipRepository) Get(_ context.Context, castID, storeID string, year, month int) (payslip.Payslip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payslips[payslipKey(castID, storeID, year, month)]
	if !ok {
		return payslip.Payslip{}, payslip.ErrPayslipNotFound
	}
	return p, nil
}

func (r *PayslipRepository) ListByPeriod(_ context.Context, storeID string, year, month int) ([]payslip.Payslip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []payslip.Payslip
	for _, p := range r.payslips {
		if p.StoreID == storeID && p.Year == year && p.Month == month {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CastID < out[j].CastID })
	return out, nil
}
