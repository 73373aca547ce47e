package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

func TestBuildEmployeeQuery(t *testing.T) {
	tests := []struct {
		name     string
		q        domain.EmployeeQuery
		wantArgs []any
		withDept bool
	}{
		{"all departments", domain.EmployeeQuery{Department: "all", MinSalary: 30000}, []any{30000.0}, false},
		{"empty department", domain.EmployeeQuery{MinSalary: 0}, []any{0.0}, false},
		{"one department", domain.EmployeeQuery{Department: " engineering ", MinSalary: 50000}, []any{50000.0, "engineering"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildEmployeeQuery(tt.q)
			assert.Equal(t, tt.wantArgs, args)
			assert.Contains(t, query, "salary >= $1")
			if tt.withDept {
				assert.Contains(t, query, "department = $2")
			} else {
				assert.NotContains(t, query, "department =")
			}
		})
	}
}
