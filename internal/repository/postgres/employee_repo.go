package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

type EmployeeRepo struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepo(pool *pgxpool.Pool) *EmployeeRepo {
	return &EmployeeRepo{pool: pool}
}

// buildEmployeeQuery собирает запрос только из bind-параметров
func buildEmployeeQuery(q domain.EmployeeQuery) (string, []any) {
	query := `SELECT id, name, department, salary::float8 FROM employees WHERE salary >= $1`
	args := []any{q.MinSalary}

	if !q.AnyDepartment() {
		query += ` AND department = $2`
		args = append(args, strings.TrimSpace(q.Department))
	}
	return query + ` ORDER BY id`, args
}

func (r *EmployeeRepo) FindEmployees(ctx context.Context, q domain.EmployeeQuery) ([]domain.Employee, error) {
	query, args := buildEmployeeQuery(q)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query employees: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Employee, 0)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.Salary); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
