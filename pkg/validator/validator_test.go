package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    uuid.UUID        `validate:"uuid_required"`
	Email string           `validate:"required,email"`
	Phone string           `validate:"omitempty,phone"`
	Price decimal.Decimal  `validate:"gt=0,money"`
	Fee   *decimal.Decimal `validate:"omitempty,gte=0,money"`
}

type line struct {
	Amount decimal.Decimal `validate:"gte=0,money"`
}

type basket struct {
	Lines []line `validate:"required,dive"`
}

func TestValidateStruct(t *testing.T) {
	errs := ValidateStruct(&sample{ID: uuid.New(), Email: "a@b.co", Price: decimal.NewFromInt(1)})
	assert.Empty(t, errs)

	errs = ValidateStruct(&sample{Email: "nope", Price: decimal.Zero})
	require.Len(t, errs, 3)
	assert.Equal(t, "sample.ID", errs[0].FailedField)
	assert.Equal(t, "uuid_required", errs[0].Tag)
	assert.Equal(t, "email", errs[1].Tag)
	assert.Equal(t, "gt", errs[2].Tag)

	negative := decimal.NewFromInt(-1)
	errs = ValidateStruct(&sample{ID: uuid.New(), Email: "a@b.co", Price: decimal.NewFromInt(1), Fee: &negative})
	require.Len(t, errs, 1)
	assert.Equal(t, "gte", errs[0].Tag)
}

func TestPhoneValidation(t *testing.T) {
	SetPhoneRegion("ID")
	assert.True(t, IsValidPhone("+6281234567890"))
	assert.True(t, IsValidPhone("081234567890"))
	assert.False(t, IsValidPhone("12"))
	assert.False(t, IsValidPhone("not a phone"))
}

func TestMoneyValidation(t *testing.T) {
	valid := func(price string) bool {
		return len(ValidateStruct(&sample{ID: uuid.New(), Email: "a@b.co", Price: decimal.RequireFromString(price)})) == 0
	}
	assert.True(t, valid("12.50"))
	assert.True(t, valid("12.500"))
	assert.True(t, valid("3"))
	assert.False(t, valid("0.005"))
	assert.False(t, valid("19.999"))

	fee := decimal.RequireFromString("1.001")
	errs := ValidateStruct(&sample{ID: uuid.New(), Email: "a@b.co", Price: decimal.NewFromInt(1), Fee: &fee})
	require.Len(t, errs, 1)
	assert.Equal(t, "money", errs[0].Tag)

	errs = ValidateStruct(&basket{Lines: []line{{Amount: decimal.RequireFromString("2.25")}, {Amount: decimal.RequireFromString("0.125")}}})
	require.Len(t, errs, 1)
	assert.Equal(t, "money", errs[0].Tag)

	assert.True(t, IsMoney(decimal.RequireFromString("9999999999.99")))
	assert.False(t, IsMoney(decimal.RequireFromString("0.001")))
}
