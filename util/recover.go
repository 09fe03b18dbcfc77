package util

import (
	"errors"
	"fmt"
)

// InterfaceToError turns a value returned by recover() into an error.
func InterfaceToError(recovered any) error {
	switch value := recovered.(type) {
	case error:
		return value
	case string:
		return errors.New(value)
	case fmt.Stringer:
		return errors.New(value.String())
	default:
		return fmt.Errorf("recovered from a panic of type %T", recovered)
	}
}
