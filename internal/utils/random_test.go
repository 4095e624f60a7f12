package utils

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

func TestGenerateUsernameFromChineseName(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+[0-9]{1,3}$`)
	for i := 0; i < 20; i++ {
		username := GenerateUsernameFromChineseName(GenerateRandomChineseName())
		assert.Regexp(t, re, username)
	}
}

func TestGenerateRandomProfessional(t *testing.T) {
	p, username := GenerateRandomProfessional(2, "hospital.example")

	assert.Equal(t, int64(2), p.LaborRegimeID)
	assert.Equal(t, username+"@hospital.example", p.Email)
	assert.NotEmpty(t, p.FullName)
}

func TestGenerateRandomDeclaration(t *testing.T) {
	regime := domain.DefaultLaborRegimes()[1]

	tests := []struct {
		name      string
		required  decimal.Decimal
		wantState domain.DeclarationState
	}{
		{"达到最少工时后提交", decimal.NewFromInt(150), domain.StateSubmitted},
		{"整月都不够时保持草稿", decimal.NewFromInt(500), domain.StateDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl, err := GenerateRandomDeclaration(7, 3, "202602", tt.required, regime)
			require.NoError(t, err)

			assert.Equal(t, tt.wantState, decl.State)
			require.NoError(t, decl.CheckInvariants())
			for _, shift := range decl.Shifts {
				assert.True(t, decl.Period.Contains(shift.Date))
			}
			if tt.wantState == domain.StateDraft {
				assert.Len(t, decl.Shifts, 28)
			}
		})
	}
}

func TestGenerateRandomPeriod(t *testing.T) {
	for i := 0; i < 20; i++ {
		_, err := domain.ParsePeriod(string(GenerateRandomPeriod(3)))
		require.NoError(t, err)
	}
}
