package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchema        ErrorType = "SCHEMA"
	ErrTypeEncoding      ErrorType = "ENCODING"
	ErrTypeData          ErrorType = "DATA"
	ErrTypeEmptyDataset  ErrorType = "EMPTY_DATASET"
	ErrTypeDiscontinuity ErrorType = "DISCONTINUITY"
	ErrTypeStaleState    ErrorType = "STALE_STATE"
	ErrTypeValidation    ErrorType = "VALIDATION"
	ErrTypeNotFound      ErrorType = "NOT_FOUND"
	ErrTypeConfig        ErrorType = "CONFIG"
)

// User-facing messages shared by several call sites
const (
	MsgLoadFailed      = "データの読み込みに失敗しました。"
	MsgNoValidData     = "アップロードされたファイルには有効なデータが含まれていません。"
	MsgNoData          = "データはありません。"
	MsgCheckFormat     = "データ形式が正しくない可能性があります。"
	MsgInternal        = "予期しないエラーが発生しました。"
	msgSyllabusGapTail = "データを確認してください。例：2025SPR, 2025SMR, 2024WTRの履修者数データは記録されているが、2025AUTのデータが抜けているなど。"
)

// AppError represents an application-specific error. Message is the
// diagnostic text for logs; UserMessage is the Japanese text shown to users.
type AppError struct {
	Type        ErrorType
	Message     string
	UserMessage string
	Cause       error
	Context     map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message, userMessage string, cause error) *AppError {
	return &AppError{
		Type:        errType,
		Message:     message,
		UserMessage: userMessage,
		Cause:       cause,
		Context:     make(map[string]interface{}),
	}
}

// IsType reports whether err wraps an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// UserMessage returns the Japanese message carried by err, or a generic one
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return MsgInternal
}

// NewSchemaError reports a required column missing from an input file
func NewSchemaError(artifact, column string) *AppError {
	return NewAppError(ErrTypeSchema,
		fmt.Sprintf("missing required column %q in %s", column, artifact),
		fmt.Sprintf("%s「%s」に必要な列「%s」がありません。", MsgLoadFailed, artifact, column),
		nil,
	).WithContext("artifact", artifact).WithContext("column", column)
}

// NewEncodingError reports a file that cannot be decoded as Shift-JIS
func NewEncodingError(artifact string, cause error) *AppError {
	return NewAppError(ErrTypeEncoding,
		fmt.Sprintf("cannot decode %s as Shift-JIS", artifact),
		fmt.Sprintf("%s「%s」をShift-JISとして読み込めませんでした。", MsgLoadFailed, artifact),
		cause,
	).WithContext("artifact", artifact)
}

// NewDataError reports an unparseable value or unknown code in an input file
func NewDataError(artifact, detail string, cause error) *AppError {
	return NewAppError(ErrTypeData,
		fmt.Sprintf("invalid data in %s: %s", artifact, detail),
		fmt.Sprintf("%s「%s」に不正な値があります（%s）。", MsgLoadFailed, artifact, detail),
		cause,
	).WithContext("artifact", artifact)
}

// NewEmptyDatasetError reports that filters or joins produced no rows
func NewEmptyDatasetError(message, userMessage string) *AppError {
	return NewAppError(ErrTypeEmptyDataset, message, userMessage, nil)
}

// NewDiscontinuityError reports syllabus tables whose term sequence has a gap.
// campuses holds the Japanese campus names that failed validation.
func NewDiscontinuityError(campuses []string) *AppError {
	var prefix string
	if len(campuses) > 1 {
		prefix = "東西キャンパス"
	} else if len(campuses) == 1 {
		prefix = campuses[0]
	}
	return NewAppError(ErrTypeDiscontinuity,
		fmt.Sprintf("syllabus term sequence is not contiguous for %s", strings.Join(campuses, ",")),
		fmt.Sprintf("%sの履修者数データの期間が連続していません。%s", prefix, msgSyllabusGapTail),
		nil,
	).WithContext("campuses", campuses)
}

// NewStaleStateError reports an action invoked before its prerequisite
func NewStaleStateError(action, userMessage string) *AppError {
	return NewAppError(ErrTypeStaleState,
		fmt.Sprintf("%s is not available in the current state", action),
		userMessage,
		nil,
	).WithContext("action", action)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message, userMessage string) *AppError {
	return NewAppError(ErrTypeValidation, message, userMessage, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound,
		fmt.Sprintf("%s not found", resource),
		fmt.Sprintf("%sが見つかりません。", resource),
		nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, MsgInternal, cause)
}
