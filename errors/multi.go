package errors

import (
	"fmt"
	"strings"
)

// Append clubs together any number of errors into a single one. Nil
// arguments are ignored. Multi errors are flattened, so the result is
// always a plain list. When no (non nil) error was given the result is
// nil, and a single error is returned unchanged.
func Append(errs ...error) error {
	var res multiError
	for _, err := range errs {
		switch e := err.(type) {
		case nil:
			continue
		case multiError:
			res = append(res, e...)
		default:
			if isNilErr(err) {
				continue
			}
			res = append(res, err)
		}
	}
	switch len(res) {
	case 0:
		return nil
	case 1:
		return res[0]
	default:
		return res
	}
}

type multiError []error

var _ unpacker = multiError(nil)

func (errs multiError) Error() string {
	switch len(errs) {
	case 0:
		return "<nil>"
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = fmt.Sprintf("\t* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n%s", len(errs), strings.Join(msgs, "\n"))
}

// Unpack implements the unpacker interface and exposes all clubbed
// errors for inspection, for example by FieldErrors.
func (errs multiError) Unpack() []error {
	return errs
}

// unpacker is implemented by errors that hold more than one child error.
type unpacker interface {
	Unpack() []error
}
