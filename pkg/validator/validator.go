package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	e164Pattern        = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	areaCodePattern    = regexp.MustCompile(`^\d{1,5}$`)
)

// Register adds the telephony rules to v: e164_number (E.164 phone
// number), country_code (ISO 3166-1 alpha-2) and area_code (numeric
// dialing prefix). Registering on gin's binding engine makes the rules
// available as binding tags.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("e164_number", func(fl validator.FieldLevel) bool {
		return e164Pattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	if err := v.RegisterValidation("country_code", func(fl validator.FieldLevel) bool {
		return countryCodePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	return v.RegisterValidation("area_code", func(fl validator.FieldLevel) bool {
		return areaCodePattern.MatchString(fl.Field().String())
	})
}

// New returns a standalone validator with the telephony rules
// registered.
func New() (*validator.Validate, error) {
	v := validator.New()
	if err := Register(v); err != nil {
		return nil, err
	}
	return v, nil
}

// IsE164 reports whether s is a valid E.164 phone number.
func IsE164(s string) bool {
	return e164Pattern.MatchString(s)
}

// IsCountryCode reports whether s is an ISO 3166-1 alpha-2 country code.
func IsCountryCode(s string) bool {
	return countryCodePattern.MatchString(s)
}

// IsAreaCode reports whether s is a plausible numeric dialing prefix.
func IsAreaCode(s string) bool {
	return areaCodePattern.MatchString(s)
}
