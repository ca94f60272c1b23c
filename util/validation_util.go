// authorizer/util/validation_util.go

package util

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	helper_util "github.com/dev-mohitbeniwal/echo/authorizer/util/helper"
)

type ValidationUtil struct {
	validate *validator.Validate
}

func NewValidationUtil() *ValidationUtil {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "clock" accepts HH:MM wall-clock times
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := helper_util.ParseClock(fl.Field().String())
		return err == nil
	})
	// "hourset" accepts "*" or inclusive hour ranges such as "6-22"
	_ = v.RegisterValidation("hourset", func(fl validator.FieldLevel) bool {
		_, err := model.ParseHourSet(fl.Field().String())
		return err == nil
	})
	return &ValidationUtil{validate: v}
}

// ValidateProfile checks a directory profile before it is cached or scored.
func (v *ValidationUtil) ValidateProfile(profile model.SecurityProfile) error {
	if err := v.validate.Struct(profile); err != nil {
		return fmt.Errorf("invalid profile %q: %w", profile.Username, err)
	}
	start, _ := helper_util.ParseClock(profile.BusinessStart)
	end, _ := helper_util.ParseClock(profile.BusinessEnd)
	if end < start {
		return fmt.Errorf("invalid profile %q: business hours end before they start", profile.Username)
	}
	return nil
}

// ValidateStruct runs tag validation on any struct.
func (v *ValidationUtil) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}
