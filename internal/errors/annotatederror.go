package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
	// cause is the wrapped error, nil for errors created with New.
	cause error
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &AnnotatedError{
		msg:   msg,
		pc:    callerPC(),
		attrs: attrs,
		cause: nil,
	}
}

// Wrap annotates err with a message describing the failed operation and optional attributes.
// Wrap returns nil when err is nil so that it can be used directly in return statements.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &AnnotatedError{
		msg:   msg,
		pc:    callerPC(),
		attrs: attrs,
		cause: err,
	}
}

// NewSentinel creates a plain error without other context that can be used as sentinel error
// that can be detected with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return pcs[0]
}

// Error implements error interface.
func (err *AnnotatedError) Error() string {
	if err.cause == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %s", err.msg, err.cause.Error())
}

// Unwrap returns the wrapped error.
func (err *AnnotatedError) Unwrap() error {
	return err.cause
}

// LogValue formats the error for useful logging.
//
// The attributes of every annotated error in the chain are included. The source points to the
// innermost annotation since that is closest to where things went wrong.
func (err *AnnotatedError) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("msg", err.Error())}
	var (
		innermost = err
		current   error = err
	)
	for current != nil {
		var annotated *AnnotatedError
		if !errors.As(current, &annotated) {
			break
		}
		attrs = append(attrs, annotated.attrs...)
		innermost = annotated
		current = annotated.cause
	}

	frames := runtime.CallersFrames([]uintptr{innermost.pc})
	source, _ := frames.Next()
	attrs = append(attrs, slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line)))

	return slog.GroupValue(attrs...)
}

// SlogError returns an attribute for logging err. Annotated errors expand into a group with source location.
func SlogError(err error) slog.Attr {
	var annotated *AnnotatedError
	if errors.As(err, &annotated) {
		// Keep the outer message which may contain context that the inner error lacks.
		group := annotated.LogValue().Group()
		group[0] = slog.String("msg", err.Error())
		return slog.Attr{Key: "error", Value: slog.GroupValue(group...)}
	}
	return slog.Any("error", err)
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
