package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/logging"
)

func validRegistration() Registration {
	return Registration{
		Name:     "Hery Rakoto",
		Email:    "Hery@Example.mg",
		Phone:    "034 12 345 67",
		Password: "s3cret-pass",
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "hery@example.mg", user.Email)
	assert.Equal(t, "0341234567", user.Phone)
	assert.Equal(t, PlanStandard, user.Plan)
	assert.NotEqual(t, []byte("s3cret-pass"), user.PasswordHash)

	found, err := svc.CheckPassword(ctx, "hery@example.mg", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = svc.CheckPassword(ctx, "hery@example.mg", "wrong-pass")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestRegisterDuplicate(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration())
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]func(r *Registration){
		"missing name":   func(r *Registration) { r.Name = " " },
		"bad email":      func(r *Registration) { r.Email = "not-an-email" },
		"bad phone":      func(r *Registration) { r.Phone = "12345" },
		"short password": func(r *Registration) { r.Password = "short" },
		"unknown plan":   func(r *Registration) { r.Plan = "gold" },
		"bad operator": func(r *Registration) {
			r.MobileMoneyNumber = "0331234567"
			r.MobileMoneyProvider = "unknown"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewService(NewMemoryRepository(), logging.Discard())
			reg := validRegistration()
			mutate(&reg)
			_, err := svc.Register(context.Background(), reg)
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestRegisterMobileMoneyDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepository(), logging.Discard())
	reg := validRegistration()
	reg.Plan = "Premium"
	reg.MobileMoneyNumber = "+261331234567"
	reg.MobileMoneyProvider = "Airtel"

	user, err := svc.Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, PlanPremium, user.Plan)
	assert.Equal(t, "+261331234567", user.MobileMoneyNumber)
	assert.Equal(t, "airtel", user.MobileMoneyProvider)

	got, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
