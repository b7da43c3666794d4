package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewAppError(ErrTypeData, "bad value", "", nil),
			want: "[DATA] bad value",
		},
		{
			name: "with cause",
			err:  NewAppError(ErrTypeEncoding, "cannot decode", "", cause),
			want: "[ENCODING] cannot decode: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewEncodingError("checkouts.csv", cause)

	assert.True(t, errors.Is(err, cause))
	wrapped := fmt.Errorf("upload: %w", err)
	assert.True(t, IsType(wrapped, ErrTypeEncoding))
	assert.False(t, IsType(wrapped, ErrTypeSchema))
}

func TestNewSchemaError(t *testing.T) {
	err := NewSchemaError("items.csv", "数量")

	assert.Equal(t, ErrTypeSchema, err.Type)
	assert.Contains(t, err.UserMessage, "items.csv")
	assert.Contains(t, err.UserMessage, "数量")
	assert.Contains(t, err.UserMessage, MsgLoadFailed)
	assert.Equal(t, "数量", err.Context["column"])
}

func TestNewDiscontinuityError(t *testing.T) {
	tests := []struct {
		name     string
		campuses []string
		prefix   string
	}{
		{name: "both campuses", campuses: []string{"西キャンパス", "東キャンパス"}, prefix: "東西キャンパスの履修者数データの期間が連続していません。"},
		{name: "west only", campuses: []string{"西キャンパス"}, prefix: "西キャンパスの履修者数データの期間が連続していません。"},
		{name: "east only", campuses: []string{"東キャンパス"}, prefix: "東キャンパスの履修者数データの期間が連続していません。"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDiscontinuityError(tt.campuses)
			assert.Equal(t, ErrTypeDiscontinuity, err.Type)
			assert.True(t, len(err.UserMessage) > len(tt.prefix))
			assert.Equal(t, tt.prefix, err.UserMessage[:len(tt.prefix)])
			assert.Equal(t, tt.campuses, err.Context["campuses"])
		})
	}
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, MsgInternal, UserMessage(errors.New("plain")))
	require.Equal(t, "先に学習してください。", UserMessage(NewStaleStateError("predict", "先に学習してください。")))
}
