package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/signalflags/signalflags-api/internal/models"
)

const (
	nameMinLen     = 1
	nameMaxLen     = 50
	deviceIDMinLen = 10
)

// userValidator carries the registration rules: the closed rank set, trimmed
// name length bounds and the device id floor.
var userValidator = newUserValidator()

func newUserValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("rank", func(fl validator.FieldLevel) bool { //nolint:errcheck
		return models.ValidRank(models.Rank(fl.Field().String()))
	})
	v.RegisterValidation("person_name", func(fl validator.FieldLevel) bool { //nolint:errcheck
		length := len(strings.TrimSpace(fl.Field().String()))
		return length >= nameMinLen && length <= nameMaxLen
	})
	return v
}

type registrationRules struct {
	Rank      models.Rank `validate:"rank"`
	FirstName string      `validate:"person_name"`
	LastName  string      `validate:"person_name"`
	DeviceID  string      `validate:"omitempty,min=10"`
}

// ValidateUserData checks registration data against the directory rules and
// reports every violated rule, not just the first. Shared by the directory
// client and the auth orchestrator.
func ValidateUserData(data models.UserRegistrationData) models.ValidationResult {
	rules := registrationRules{
		Rank:      data.Rank,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		DeviceID:  data.DeviceID,
	}

	err := userValidator.Struct(rules)
	if err == nil {
		return models.ValidationResult{Valid: true}
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return models.ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}

	errs := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		errs = append(errs, registrationMessage(fe, data))
	}
	return models.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func registrationMessage(fe validator.FieldError, data models.UserRegistrationData) string {
	switch fe.Field() {
	case "Rank":
		return fmt.Sprintf("rank %q is not a recognised rank", data.Rank)
	case "FirstName":
		return fmt.Sprintf("first name must be between %d and %d characters", nameMinLen, nameMaxLen)
	case "LastName":
		return fmt.Sprintf("last name must be between %d and %d characters", nameMinLen, nameMaxLen)
	case "DeviceID":
		return fmt.Sprintf("device id must be at least %d characters", deviceIDMinLen)
	}
	return fe.Error()
}

// validateUserUpdate applies the creation rules to whichever fields a
// partial update carries.
func validateUserUpdate(update models.UserUpdate) models.ValidationResult {
	var errs []string

	if update.Rank != nil && userValidator.Var(*update.Rank, "rank") != nil {
		errs = append(errs, fmt.Sprintf("rank %q is not a recognised rank", *update.Rank))
	}
	if update.FirstName != nil && userValidator.Var(*update.FirstName, "person_name") != nil {
		errs = append(errs, fmt.Sprintf("first name must be between %d and %d characters", nameMinLen, nameMaxLen))
	}
	if update.LastName != nil && userValidator.Var(*update.LastName, "person_name") != nil {
		errs = append(errs, fmt.Sprintf("last name must be between %d and %d characters", nameMinLen, nameMaxLen))
	}

	return models.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
