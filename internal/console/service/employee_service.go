package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

type EmployeeRepository interface {
	FindEmployees(ctx context.Context, q domain.EmployeeQuery) ([]domain.Employee, error)
}

type EmployeeService struct {
	repo   EmployeeRepository
	logger *zap.Logger
}

func NewEmployeeService(repo EmployeeRepository, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{repo: repo, logger: logger.Named("employee-service")}
}

// Report выполняет выборку и считает метрики: количество, средняя и максимальная зарплата.
// Для пустой выборки средняя и максимум равны нулю.
func (s *EmployeeService) Report(ctx context.Context, q domain.EmployeeQuery) (*domain.EmployeeReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	employees, err := s.repo.FindEmployees(ctx, q)
	if err != nil {
		s.logger.Error("employee query failed", zap.String("department", q.Department), zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch employees: %w", err)
	}
	if employees == nil {
		employees = []domain.Employee{}
	}

	report := &domain.EmployeeReport{Employees: employees, Total: len(employees)}
	if report.Total == 0 {
		return report, nil
	}

	var sum float64
	report.MaxSalary = employees[0].Salary
	for _, e := range employees {
		sum += e.Salary
		if e.Salary > report.MaxSalary {
			report.MaxSalary = e.Salary
		}
	}
	report.AverageSalary = sum / float64(report.Total)

	return report, nil
}
