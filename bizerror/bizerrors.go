package bizerror

import (
	"errors"
	"net/http"

	"github.com/fundwit/go-commons/types"
)

// ErrVersionConflict reports a lost optimistic-concurrency race on a single
// compare-and-set attempt. It stays inside the transition engine's retry
// loop and is surfaced to callers as ErrConflict once retries are exhausted.
var ErrVersionConflict = errors.New("version conflict")

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message}
}

type ErrInvalidType struct {
	TypeCode string
}

func (e *ErrInvalidType) Error() string {
	return "unknown work item type '" + e.TypeCode + "'"
}
func (e *ErrInvalidType) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.invalid_type", Message: e.Error(),
		Data: map[string]string{"typeCode": e.TypeCode}}
}

type ErrInvalidTransition struct {
	State  string
	Action string
}

func (e *ErrInvalidTransition) Error() string {
	return "state '" + e.State + "' does not accept action '" + e.Action + "'"
}
func (e *ErrInvalidTransition) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "workflow.invalid_transition", Message: e.Error(),
		Data: map[string]string{"state": e.State, "action": e.Action}}
}

type ErrMissingRequiredField struct {
	Field string
}

func (e *ErrMissingRequiredField) Error() string {
	return "required field '" + e.Field + "' is missing"
}
func (e *ErrMissingRequiredField) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "workflow.missing_required_field", Message: e.Error(),
		Data: map[string]string{"field": e.Field}}
}

type ErrInvalidOwner struct {
	UserID types.ID
}

func (e *ErrInvalidOwner) Error() string {
	return "user '" + e.UserID.String() + "' not found in identity directory"
}
func (e *ErrInvalidOwner) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "workflow.invalid_owner", Message: e.Error(),
		Data: map[string]types.ID{"userId": e.UserID}}
}

type ErrTerminalState struct {
	State string
}

func (e *ErrTerminalState) Error() string {
	return "state '" + e.State + "' is terminal"
}
func (e *ErrTerminalState) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "workflow.terminal_state", Message: e.Error(),
		Data: map[string]string{"state": e.State}}
}

type ErrConflict struct {
	Attempts int
}

func (e *ErrConflict) Error() string {
	return "lost race against a concurrent update, retries exhausted"
}
func (e *ErrConflict) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusConflict, Code: "common.conflict", Message: e.Error(),
		Data: map[string]int{"attempts": e.Attempts}}
}
