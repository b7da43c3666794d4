package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "poscope/internal/errors"
)

// Service errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")

	// Input errors
	ErrNoFiles       = errors.New("no files uploaded")
	ErrNoPOSData     = errors.New("pos data not uploaded")
	ErrNoSyllabus    = errors.New("syllabus not uploaded")
	ErrMissingInputs = errors.New("forecast inputs missing")

	// Query errors
	ErrInvalidQuery = errors.New("invalid aggregation query")
)

// User-facing messages of the service layer
const (
	MsgSessionNotFound = "セッションが見つかりません。画面を再読み込みしてください。"
	MsgTooManySessions = "同時に利用できるセッション数の上限に達しました。しばらくしてから再度お試しください。"
	MsgNoFiles         = "ファイルが選択されていません。"
	MsgInvalidQuery    = "集計条件が正しくありません。"
	msgUploadFirst     = "をアップロードしてください。"
)

func sessionNotFound(id string) error {
	return apperrors.NewAppError(apperrors.ErrTypeNotFound,
		fmt.Sprintf("session %s not found", id),
		MsgSessionNotFound,
		ErrSessionNotFound,
	).WithContext("session_id", id)
}

func tooManySessions() error {
	return apperrors.New(http.StatusServiceUnavailable, "TOO_MANY_SESSIONS", MsgTooManySessions)
}

// missingInputs reports an action invoked before the named inputs were uploaded
func missingInputs(action string, missing []string, sentinel error) error {
	return apperrors.NewAppError(apperrors.ErrTypeStaleState,
		fmt.Sprintf("%s needs %s", action, strings.Join(missing, ", ")),
		strings.Join(missing, "、")+msgUploadFirst,
		sentinel,
	).WithContext("action", action).WithContext("missing", missing)
}

func invalidQuery(detail string, cause error) error {
	if cause == nil {
		cause = ErrInvalidQuery
	}
	return apperrors.NewAppError(apperrors.ErrTypeValidation,
		"invalid aggregation query: "+detail,
		MsgInvalidQuery,
		cause,
	)
}

// loadFailed prefixes the user message of a rejected upload with the
// generic load failure text unless it already carries it
func loadFailed(kind string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Type == apperrors.ErrTypeEmptyDataset || appErr.Type == apperrors.ErrTypeDiscontinuity {
			return err
		}
		if !strings.HasPrefix(appErr.UserMessage, apperrors.MsgLoadFailed) {
			appErr.UserMessage = apperrors.MsgLoadFailed + appErr.UserMessage
		}
		return appErr.WithContext("upload", kind)
	}
	return apperrors.NewAppError(apperrors.ErrTypeData,
		fmt.Sprintf("%s upload failed", kind),
		apperrors.MsgLoadFailed+apperrors.MsgCheckFormat,
		err,
	).WithContext("upload", kind)
}
