package service

import (
	"time"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/pkg/validate"
	"github.com/pkg/errors"
)

const (
	// MinReturnRate is the reliability score a member needs to borrow.
	MinReturnRate = 30
	// ReturnRateStep is added for an on-time return and taken for a late one.
	ReturnRateStep = 5
)

type clock func() time.Time

// check validates v and reports every violated field at once.
func check(v *validate.CustomValidator, i interface{}) error {
	err := v.Validate(i)
	if err == nil {
		return nil
	}
	var fe validate.FieldErrors
	if errors.As(err, &fe) {
		return errs.Validation(fe...)
	}
	return errors.Wrap(err, "validate")
}
