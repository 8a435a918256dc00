package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSLAPolicy_Validate(t *testing.T) {
	withTargets := func(priority domain.TicketPriority, targets domain.SLATargets) domain.SLAPolicy {
		policy := domain.DefaultSLAPolicy()
		policy[priority] = targets
		return policy
	}
	missingUrgent := domain.DefaultSLAPolicy()
	delete(missingUrgent, domain.PriorityUrgent)
	unknownPriority := domain.DefaultSLAPolicy()
	unknownPriority["CRITICAL"] = domain.SLATargets{FirstResponse: time.Hour, Resolution: time.Hour, OwnResolution: time.Hour}

	tests := []struct {
		name    string
		policy  domain.SLAPolicy
		wantErr bool
	}{
		{"default policy", domain.DefaultSLAPolicy(), false},
		{"missing priority", missingUrgent, true},
		{"unknown priority", unknownPriority, true},
		{"zero first response", withTargets(domain.PriorityLow, domain.SLATargets{Resolution: time.Hour, OwnResolution: time.Hour}), true},
		{"negative own resolution", withTargets(domain.PriorityLow, domain.SLATargets{FirstResponse: time.Hour, Resolution: time.Hour, OwnResolution: -time.Hour}), true},
		{"response after resolution", withTargets(domain.PriorityHigh, domain.SLATargets{FirstResponse: 3 * time.Hour, Resolution: 2 * time.Hour, OwnResolution: time.Hour}), true},
		{"empty policy", domain.SLAPolicy{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidSLAPolicy)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSLAPolicy_TargetsFor(t *testing.T) {
	policy := domain.DefaultSLAPolicy()

	targets, err := policy.TargetsFor(domain.PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, targets.FirstResponse)

	_, err = domain.SLAPolicy{}.TargetsFor(domain.PriorityLow)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSLAPolicy)
}

func TestNewTenant(t *testing.T) {
	at := monday(8, 0)

	t.Run("valid configuration", func(t *testing.T) {
		id := uuid.New()
		tenant, err := domain.NewTenant(id, "  Acme  ", domain.DefaultBusinessCalendar(), domain.DefaultSLAPolicy(), at)
		require.NoError(t, err)
		assert.Equal(t, "Acme", tenant.Name)
		assert.Equal(t, at, tenant.UpdatedAt)
	})

	t.Run("blank name falls back to the id", func(t *testing.T) {
		id := uuid.New()
		tenant, err := domain.NewTenant(id, "", domain.DefaultBusinessCalendar(), domain.DefaultSLAPolicy(), at)
		require.NoError(t, err)
		assert.Equal(t, id.String(), tenant.Name)
	})

	t.Run("nil id", func(t *testing.T) {
		_, err := domain.NewTenant(uuid.Nil, "Acme", domain.DefaultBusinessCalendar(), domain.DefaultSLAPolicy(), at)
		assert.ErrorIs(t, err, apperrors.ErrTenantRequired)
	})

	t.Run("invalid calendar is rejected at write time", func(t *testing.T) {
		_, err := domain.NewTenant(uuid.New(), "Acme", domain.BusinessCalendar{Timezone: "UTC"}, domain.DefaultSLAPolicy(), at)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
	})
}

func TestTenant_UpdateCalendar(t *testing.T) {
	tenant, err := domain.NewTenant(uuid.New(), "Acme", domain.DefaultBusinessCalendar(), domain.DefaultSLAPolicy(), monday(8, 0))
	require.NoError(t, err)

	err = tenant.UpdateCalendar(domain.BusinessCalendar{Timezone: "UTC", WorkDays: []int{1}, Start: "18:00", End: "09:00"}, monday(9, 0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
	assert.Equal(t, domain.DefaultBusinessCalendar(), tenant.Calendar)

	require.NoError(t, tenant.UpdateCalendar(saoPauloCalendar(), monday(9, 0)))
	assert.Equal(t, "America/Sao_Paulo", tenant.Calendar.Timezone)
	assert.Equal(t, monday(9, 0), tenant.UpdatedAt)
}

func TestTenant_UpdatePolicy(t *testing.T) {
	tenant, err := domain.NewTenant(uuid.New(), "Acme", domain.DefaultBusinessCalendar(), domain.DefaultSLAPolicy(), monday(8, 0))
	require.NoError(t, err)

	err = tenant.UpdatePolicy(domain.SLAPolicy{}, monday(9, 0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidSLAPolicy)
	assert.Equal(t, domain.DefaultSLAPolicy(), tenant.Policy)
}

func TestBuildComplianceReport(t *testing.T) {
	cal := domain.DefaultBusinessCalendar()
	tenantID := uuid.New()

	onTime := newTriggerTicket(t, monday(9, 0))
	move(t, onTime, domain.StatusResolved, monday(10, 0))

	late := newTriggerTicket(t, monday(9, 0))
	assign(t, late, monday(9, 0))

	pending := newTriggerTicket(t, monday(12, 0))
	pending.Priority = domain.PriorityLow

	report, err := domain.BuildComplianceReport(tenantID, monday(0, 0), monday(16, 0),
		[]*domain.Ticket{onTime, late, pending}, cal)
	require.NoError(t, err)

	// late: response due 11:00 and OLA due 15:00 missed. pending: response due 14:00 missed.
	assert.Equal(t, domain.ComplianceCounts{Met: 1, Breached: 2}, report.SLAResponse)
	assert.Equal(t, domain.ComplianceCounts{Met: 1, Pending: 2}, report.SLAResolution)
	assert.Equal(t, domain.ComplianceCounts{Breached: 1}, report.OLAResolution)
	assert.Equal(t, time.Hour, report.MeanResolutionBusinessTime)

	require.Len(t, report.ByPriority, 2)
	assert.Equal(t, domain.PriorityLow, report.ByPriority[0].Priority)
	assert.Equal(t, domain.PriorityHigh, report.ByPriority[1].Priority)
	assert.InDelta(t, 1.0/3.0, report.SLAResponse.Rate(), 0.0001)
	assert.Equal(t, int64(3), report.SLAResponse.Total())
}
