// Package validation provides common validation utilities for configuration
// parameters across the mapflow library.
//
// Scalar checks (ValidatePositive, ValidateNonNegative, ...) are used by
// constructors. Struct validates tagged configuration structs with
// go-playground/validator and reports the first violation as a
// *errors.ValidationError, so callers see one error shape regardless of
// where the value came from.
package validation
