package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

// DefaultMinSalary - начальное положение слайдера
const DefaultMinSalary = 30000

type EmployeeService interface {
	Report(ctx context.Context, q domain.EmployeeQuery) (*domain.EmployeeReport, error)
}

type EmployeeHandler struct {
	service EmployeeService
	logger  *zap.Logger
}

func NewEmployeeHandler(s EmployeeService, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{service: s, logger: logger.Named("employee-handler")}
}

// Report GET /v1/employees?department=engineering&min_salary=30000
func (h *EmployeeHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := domain.EmployeeQuery{
		Department: r.URL.Query().Get("department"),
		MinSalary:  DefaultMinSalary,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("min_salary")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, h.logger, fmt.Errorf("%w: min_salary=%q is not a number", domain.ErrInvalidQuery, raw))
			return
		}
		q.MinSalary = v
	}

	report, err := h.service.Report(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Departments - варианты селектора. GET /v1/employees/departments
func (h *EmployeeHandler) Departments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Departments())
}
