package export

import (
	"errors"
	"regexp"
)

// CallbackContentType is sent with callback-wrapped payloads.
const CallbackContentType = "application/javascript; charset=utf-8"

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

var ErrInvalidCallback = errors.New("invalid callback name")

// ValidCallbackName reports whether name is a plain JavaScript identifier path.
func ValidCallbackName(name string) bool {
	return len(name) <= 128 && callbackPattern.MatchString(name)
}

// WrapCallback renders payload as an invocation of the named function.
func WrapCallback(name string, payload []byte) ([]byte, error) {
	if !ValidCallbackName(name) {
		return nil, ErrInvalidCallback
	}
	out := make([]byte, 0, len(name)+len(payload)+2)
	out = append(out, name...)
	out = append(out, '(')
	out = append(out, payload...)
	out = append(out, ')')
	return out, nil
}
