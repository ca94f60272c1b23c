package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

func validProfile() model.SecurityProfile {
	return model.SecurityProfile{
		Username:            "demo_user_ny",
		Email:               "demo_user_ny@medisupply.com",
		Role:                "user",
		BusinessStart:       "08:00",
		BusinessEnd:         "20:00",
		AuthorizedCountries: []string{"US"},
		RiskTolerance:       model.RiskToleranceMedium,
		UserStatus:          model.UserStatusConfirmed,
		Enabled:             true,
	}
}

func TestValidateProfile(t *testing.T) {
	v := util.NewValidationUtil()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.ValidateProfile(validProfile()))
	})

	tests := []struct {
		name   string
		mutate func(p *model.SecurityProfile)
	}{
		{"missing username", func(p *model.SecurityProfile) { p.Username = "" }},
		{"bad clock", func(p *model.SecurityProfile) { p.BusinessStart = "8am" }},
		{"hour out of range", func(p *model.SecurityProfile) { p.BusinessEnd = "24:00" }},
		{"unknown tolerance", func(p *model.SecurityProfile) { p.RiskTolerance = "extreme" }},
		{"no countries", func(p *model.SecurityProfile) { p.AuthorizedCountries = nil }},
		{"end before start", func(p *model.SecurityProfile) { p.BusinessStart, p.BusinessEnd = "18:00", "09:00" }},
		{"bad email", func(p *model.SecurityProfile) { p.Email = "not-an-email" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			assert.Error(t, v.ValidateProfile(p))
		})
	}
}

func TestValidateStructHourSet(t *testing.T) {
	v := util.NewValidationUtil()
	type rule struct {
		Hours string `validate:"hourset"`
	}

	assert.NoError(t, v.ValidateStruct(rule{Hours: "*"}))
	assert.NoError(t, v.ValidateStruct(rule{Hours: "6-22"}))
	assert.Error(t, v.ValidateStruct(rule{Hours: "22-6"}))
	assert.Error(t, v.ValidateStruct(rule{Hours: "morning"}))
}
