package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() AgreementDraftInput {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	return AgreementDraftInput{
		ServiceProviderName: "Studio North",
		AgreementDate:       time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC),
		ServiceType:         "brand design",
		StartDate:           &start,
		EndDate:             &end,
		Duration:            4,
		DurationUnit:        "weeks",
		NumberOfRevisions:   2,
		Jurisdiction:        "the State of New York",
		Deliverables: []DeliverableInput{
			{Description: "Logo suite"},
		},
		PaymentTerms: PaymentTermsInput{
			PaymentStructure: "milestone-based",
			PaymentMethod:    "bank transfer",
			Milestones: []MilestoneInput{
				{Description: "Kickoff", Amount: 4000, DueDate: &due},
				{Description: "Delivery", Amount: 6000, DueDate: &due},
			},
		},
	}
}

func fieldNames(ve *ValidationError) []string {
	names := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestValidateDraft_Valid(t *testing.T) {
	draft := validDraft()
	assert.Nil(t, ValidateDraft(&draft))
}

func TestValidateDraft_RequiredFields(t *testing.T) {
	draft := validDraft()
	draft.ServiceProviderName = ""
	draft.ServiceType = ""
	draft.Jurisdiction = ""
	draft.AgreementDate = time.Time{}

	ve := ValidateDraft(&draft)
	require.NotNil(t, ve)
	names := fieldNames(ve)
	assert.Contains(t, names, "service_provider_name")
	assert.Contains(t, names, "service_type")
	assert.Contains(t, names, "jurisdiction")
	assert.Contains(t, names, "agreement_date")
}

func TestValidateDraft_EndBeforeStart(t *testing.T) {
	draft := validDraft()
	earlier := draft.StartDate.Add(-24 * time.Hour)
	draft.EndDate = &earlier

	ve := ValidateDraft(&draft)
	require.NotNil(t, ve)
	assert.Contains(t, fieldNames(ve), "end_date")
}

func TestValidateDraft_NegativeRevisions(t *testing.T) {
	draft := validDraft()
	draft.NumberOfRevisions = -1

	ve := ValidateDraft(&draft)
	require.NotNil(t, ve)
	assert.Contains(t, fieldNames(ve), "number_of_revisions")
}

func TestValidateDraft_UnknownDurationUnit(t *testing.T) {
	draft := validDraft()
	draft.DurationUnit = "fortnights"

	ve := ValidateDraft(&draft)
	require.NotNil(t, ve)
	assert.Contains(t, fieldNames(ve), "duration_unit")
}

func TestValidateDraft_UnknownPaymentStructure(t *testing.T) {
	draft := validDraft()
	draft.PaymentTerms.PaymentStructure = "barter"

	ve := ValidateDraft(&draft)
	require.NotNil(t, ve)
	assert.Contains(t, fieldNames(ve), "payment_terms.payment_structure")
}

func TestValidateDraft_MilestoneRules(t *testing.T) {
	t.Run("milestone based requires milestones", func(t *testing.T) {
		draft := validDraft()
		draft.PaymentTerms.Milestones = nil

		ve := ValidateDraft(&draft)
		require.NotNil(t, ve)
		assert.Contains(t, fieldNames(ve), "payment_terms.milestones")
	})

	t.Run("zero amount and missing due date rejected", func(t *testing.T) {
		draft := validDraft()
		draft.PaymentTerms.Milestones[1].Amount = 0
		draft.PaymentTerms.Milestones[1].DueDate = nil

		ve := ValidateDraft(&draft)
		require.NotNil(t, ve)
		names := fieldNames(ve)
		assert.Contains(t, names, "payment_terms.milestones[1].amount")
		assert.Contains(t, names, "payment_terms.milestones[1].due_date")
	})

	t.Run("flat structures ignore milestone rules", func(t *testing.T) {
		draft := validDraft()
		draft.PaymentTerms.PaymentStructure = "50-50"
		draft.PaymentTerms.Milestones = nil

		assert.Nil(t, ValidateDraft(&draft))
	})
}

func TestValidateDraft_EmptyDeliverableDescription(t *testing.T) {
	draft := validDraft()
	draft.Deliverables = append(draft.Deliverables, DeliverableInput{Description: ""})

	ve := ValidateDraft(&draft)
	require.NotNil(t, ve)
	assert.Contains(t, fieldNames(ve), "deliverables[1].description")
}
