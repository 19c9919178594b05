// Package validation provides input validation for configuration and
// request shapes.
//
// It supports both struct tag validation (using the validator library)
// and programmatic validation with error collection. Struct tag
// validation is what the config sections use.
//
// # Struct Tag Validation
//
//	type LimitRule struct {
//	    MaxRequests int           `validate:"required,gt=0"`
//	    Window      time.Duration `validate:"required,gt=0"`
//	}
//	err := validation.Validate(&rule)
//
// # Programmatic Validation
//
//	v := validation.New().
//	    Required("service", req.Service).
//	    Min("priority", req.Priority, 0)
//	err := v.Validate()
package validation
