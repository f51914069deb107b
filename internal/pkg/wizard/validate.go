package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors maps a field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

func (fe FieldErrors) merge(o FieldErrors) {
	for k, v := range o {
		fe[k] = v
	}
}

func structErrors(prefix string, s any) FieldErrors {
	out := FieldErrors{}
	err := validate.Struct(s)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[strings.TrimSuffix(prefix, ".")] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[prefix+fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "datetime":
		return "must be a date in " + fe.Param() + " format"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// ValidateStep checks only the fields owned by step. The media step needs
// to know which slots hold a file; has may be nil for other steps.
func ValidateStep(d *Draft, step Step, ownerID uuid.UUID, has func(Slot) bool) FieldErrors {
	errs := FieldErrors{}
	switch step {
	case StepBasic:
		errs.merge(structErrors("", d.Basic))

	case StepDetails:
		switch d.Type {
		case model.TypeAcademic:
			if d.Academic == nil {
				errs["academic"] = "is required"
			} else {
				errs.merge(structErrors("academic.", d.Academic))
			}
		case model.TypeCompetition:
			if d.Competition == nil {
				errs["competition"] = "is required"
			} else {
				errs.merge(structErrors("competition.", d.Competition))
			}
		case model.TypeCoursework:
			if d.Coursework != nil {
				errs.merge(structErrors("coursework.", d.Coursework))
			}
		default:
			errs["type"] = "is required"
		}

	case StepContributors:
		if err := d.Contributors.Validate(ownerID); err != nil {
			errs["contributors"] = err.Error()
		}

	case StepMedia:
		errs.merge(RequiredFileErrors(d.Type, has))

	case StepReview:
		for _, s := range []Step{StepBasic, StepDetails, StepContributors, StepMedia} {
			errs.merge(ValidateStep(d, s, ownerID, has))
		}
	}
	return errs
}

// RequiredFileErrors reports the type-dependent required file: academic
// projects need a PDF paper, coursework and competition need a poster image.
func RequiredFileErrors(t model.ProjectType, has func(Slot) bool) FieldErrors {
	errs := FieldErrors{}
	slot := RequiredSlot(t)
	if slot == "" {
		return errs
	}
	if has == nil || !has(slot) {
		switch slot {
		case SlotPaper:
			errs[string(slot)] = "a PDF paper file is required for academic projects"
		case SlotPoster:
			errs[string(slot)] = fmt.Sprintf("a poster image is required for %s projects", t)
		}
	}
	return errs
}

// Validate runs every step; it is what the server applies to a submission.
func Validate(d *Draft, ownerID uuid.UUID, has func(Slot) bool) error {
	if errs := ValidateStep(d, StepReview, ownerID, has); len(errs) > 0 {
		return errs
	}
	return nil
}
