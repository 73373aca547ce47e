package domain

import (
	"fmt"
	"math"
	"strings"
)

// AllDepartments - значение селектора «все отделы»
const AllDepartments = "all"

// Диапазон слайдера минимальной зарплаты
const (
	MinSalaryFloor   = 0
	MinSalaryCeiling = 100000
)

type Employee struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	Salary     float64 `json:"salary"`
}

type EmployeeQuery struct {
	Department string  `json:"department"` // "" или "all" - без фильтра по отделу
	MinSalary  float64 `json:"min_salary"`
}

// AnyDepartment сообщает, что фильтр по отделу не нужен
func (q EmployeeQuery) AnyDepartment() bool {
	d := strings.TrimSpace(q.Department)
	return d == "" || strings.EqualFold(d, AllDepartments)
}

func (q EmployeeQuery) Validate() error {
	if math.IsNaN(q.MinSalary) {
		return fmt.Errorf("%w: min_salary must be a number", ErrInvalidQuery)
	}
	if q.MinSalary < MinSalaryFloor || q.MinSalary > MinSalaryCeiling {
		return fmt.Errorf("%w: min_salary must be within [%d,%d], got %v",
			ErrInvalidQuery, MinSalaryFloor, MinSalaryCeiling, q.MinSalary)
	}
	return nil
}

// EmployeeReport - таблица сотрудников плюс три метрики под ней
type EmployeeReport struct {
	Employees     []Employee `json:"employees"`
	Total         int        `json:"total"`
	AverageSalary float64    `json:"average_salary"` // 0 при Total == 0
	MaxSalary     float64    `json:"max_salary"`
}

// Departments - варианты селектора отделов
func Departments() []string {
	return []string{AllDepartments, "engineering", "marketing", "hr"}
}
