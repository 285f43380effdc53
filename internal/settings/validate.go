package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var settingsValidate *validator.Validate

func init() {
	settingsValidate = validator.New()
	settingsValidate.RegisterStructValidation(validateSettings, Settings{})
}

// validate runs tag and cross-field validation and reports every failure.
func validate(s *Settings) error {
	err := settingsValidate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return &Error{Field: fieldPath(verrs[0]), Message: strings.Join(msgs, "; ")}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_for_mode":
		return fmt.Sprintf("%s is required for drive mode %s", fieldPath(fe), fe.Param())
	case "run_length":
		return "fixed-length runs need N_pass, N_step or N_sample (or give a measurement a precision)"
	case "nonnegative":
		return fmt.Sprintf("%s must have a non-negative temperature and composition", fieldPath(fe))
	case "diagonal":
		return "supercell must be a diagonal matrix with positive entries"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fieldPath(fe), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", fieldPath(fe), fe.Tag())
	}
}

// validateSettings checks the rules that span several fields.
func validateSettings(sl validator.StructLevel) {
	s := sl.Current().Interface().(Settings)

	switch s.Driver.Mode {
	case "single":
		if s.Driver.Initial == nil {
			sl.ReportError(s.Driver.Initial, "Driver.Initial", "Initial", "required_for_mode", "single")
		}
	case "incremental":
		if s.Driver.Initial == nil {
			sl.ReportError(s.Driver.Initial, "Driver.Initial", "Initial", "required_for_mode", "incremental")
		}
		if s.Driver.Final == nil {
			sl.ReportError(s.Driver.Final, "Driver.Final", "Final", "required_for_mode", "incremental")
		}
		if s.Driver.Incremental == nil {
			sl.ReportError(s.Driver.Incremental, "Driver.Incremental", "Incremental", "required_for_mode", "incremental")
		}
	case "custom":
		if len(s.Driver.Custom) == 0 {
			sl.ReportError(s.Driver.Custom, "Driver.Custom", "Custom", "required_for_mode", "custom")
		}
	}

	for name, c := range map[string]*Conditions{"Initial": s.Driver.Initial, "Final": s.Driver.Final} {
		if c != nil && !nonNegative(c) {
			sl.ReportError(c, "Driver."+name, name, "nonnegative", "")
		}
	}
	for i := range s.Driver.Custom {
		if !nonNegative(&s.Driver.Custom[i]) {
			sl.ReportError(s.Driver.Custom[i], fmt.Sprintf("Driver.Custom[%d]", i), "Custom", "nonnegative", "")
		}
	}

	if !s.MustConverge() && s.Data.NPass == 0 && s.Data.NStep == 0 && s.Data.NSample == 0 {
		sl.ReportError(s.Data.NPass, "Data.NPass", "NPass", "run_length", "")
	}

	if len(s.Supercell) == 3 {
		for i, row := range s.Supercell {
			for j, v := range row {
				if (i == j && v < 1) || (i != j && v != 0) {
					sl.ReportError(s.Supercell, "Supercell", "Supercell", "diagonal", "")
					return
				}
			}
		}
	}
}

func nonNegative(c *Conditions) bool {
	if c.Temperature < 0 {
		return false
	}
	for _, v := range c.CompN {
		if v < 0 {
			return false
		}
	}
	return true
}
