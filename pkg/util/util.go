package util

import (
	"errors"
	"fmt"
	"math"
)

// error

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}

	return e.msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.orig != nil {
		errs = append(errs, e.orig)
	}
	if e.code != nil {
		errs = append(errs, e.code)
	}
	return errs
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Code() error {
	return e.code
}

// error codes. every error surfaced by the flow core carries one of these, so callers can match with errors.Is.
var (
	ErrSpec             = errors.New("invalid problem specification")
	ErrUnreachableRoute = errors.New("no charge-feasible route")
	ErrIndexRange       = errors.New("index out of range")
	ErrSolver           = errors.New("solver failure")

	ErrInternalServerError = errors.New("internal Server Error")
	ErrBadParamInput       = errors.New("given Param is not valid")
)

var MessageInternalServerError string = "internal server error"

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// PrefixSum returns p with p[0]=0 and p[i+1]=p[i]+xs[i].
func PrefixSum(xs []int) []int {
	p := make([]int, len(xs)+1)
	for i, x := range xs {
		p[i+1] = p[i] + x
	}
	return p
}

func ReverseG[T any](arr []T) []T {
	copyArr := make([]T, len(arr))
	copy(copyArr, arr)
	for i, j := 0, len(copyArr)-1; i < j; i, j = i+1, j-1 {
		copyArr[i], copyArr[j] = copyArr[j], copyArr[i]
	}
	return copyArr
}
