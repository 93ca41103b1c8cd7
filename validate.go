package modelapi

import "errors"

// SelfValidator is implemented by models (or request containers) that
// validate themselves after binding. Returning ValidationErrors reports
// field-level failures; other errors are reported at the model root.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request after binding.
type Validator interface {
	Validate(req any) error
}

// asValidationErrors classifies an error returned by a validator. Errors
// carrying their own status pass through unchanged.
func asValidationErrors(err error) error {
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return errs
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return err
	}
	return ValidationErrors{{Loc: []string{}, Msg: err.Error(), Type: "value_error"}}
}
