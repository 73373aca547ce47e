package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmployeeQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		salary  float64
		wantErr bool
	}{
		{"floor", MinSalaryFloor, false},
		{"slider default", 30000, false},
		{"ceiling", MinSalaryCeiling, false},
		{"negative", -1, true},
		{"above ceiling", MinSalaryCeiling + 1, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EmployeeQuery{Department: "all", MinSalary: tt.salary}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
