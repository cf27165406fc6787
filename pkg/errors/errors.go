package errors

import (
	"errors"
	"fmt"
)

// ErrSideEffect 记录已提交，但后续副作用（如二维码生成）失败
var ErrSideEffect = errors.New("记录已保存，但后续处理失败")

// SideEffectError 携带已提交记录的 ID，便于调用方提示用户记录仍然存在
type SideEffectError struct {
	RecordID uint
	Step     string
	Err      error
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("记录 %d 已保存，%s 失败: %v", e.RecordID, e.Step, e.Err)
}

func (e *SideEffectError) Unwrap() []error {
	return []error{ErrSideEffect, e.Err}
}

// NewSideEffect 包装提交后的副作用错误
func NewSideEffect(recordID uint, step string, err error) error {
	return &SideEffectError{RecordID: recordID, Step: step, Err: err}
}
