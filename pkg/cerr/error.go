package cerr

import (
	"errors"
	"fmt"
)

type Error struct {
	Code Code
	Msg  string // message returned to the user together with Code
	Err  error  // underlying error, kept for logs
}

func NewError(code Code, msg string, underlying error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}
