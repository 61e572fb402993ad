package engine

import (
	"errors"
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedMutation: a requested mutation kind is not supported
	// by the device.
	ErrCodeUnsupportedMutation ErrorCode = "UNSUPPORTED_MUTATION"

	// ErrCodeInvalidKernelGroup: the kernel group has fewer than two distinct
	// kernels, or was supplied without the KernelInstruction kind.
	ErrCodeInvalidKernelGroup ErrorCode = "INVALID_KERNEL_GROUP"

	// ErrCodeUnknownCommandID: the id was never issued by this buffer, or was
	// issued but never recorded.
	ErrCodeUnknownCommandID ErrorCode = "UNKNOWN_COMMAND_ID"

	// ErrCodeAlreadyRecorded: a second launch was recorded with the same id.
	ErrCodeAlreadyRecorded ErrorCode = "ALREADY_RECORDED"

	// ErrCodeKernelNotInGroup: the kernel is not a member of the id's group.
	ErrCodeKernelNotInGroup ErrorCode = "KERNEL_NOT_IN_GROUP"

	// ErrCodeMutationNotRequested: a patch kind the id was not granted.
	ErrCodeMutationNotRequested ErrorCode = "MUTATION_NOT_REQUESTED"

	// ErrCodeNotAllCommandsValid: close found a command still missing
	// arguments or dispatch shape after a kernel swap.
	ErrCodeNotAllCommandsValid ErrorCode = "NOT_ALL_COMMANDS_VALID"

	// ErrCodeInvalidState: the operation is not allowed in the buffer's
	// current state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeInvalidArgument: a value does not fit the kernel signature or
	// the recorded command.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Error is the error type returned by every Buffer operation.
type Error struct {
	Code    ErrorCode
	Message string

	// CommandID is the command the error concerns, or zero.
	CommandID ir.CommandID

	// Details carries additional context, such as the failing patch index.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.CommandID != 0 {
		return fmt.Sprintf("%s: %s (command=%d)", e.Code, e.Message, e.CommandID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of an engine error, or "" for other errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err is an engine error with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func newError(code ErrorCode, id ir.CommandID, format string, args ...any) *Error {
	return &Error{Code: code, CommandID: id, Message: fmt.Sprintf(format, args...)}
}

// withDetail returns e with one more detail attached.
func (e *Error) withDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}
