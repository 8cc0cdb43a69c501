package service

import (
	"errors"
	"fmt"

	"github.com/yeisme/chunkvault/pkg/rule"
)

// 协调器错误分类，HTTP 层用 errors.Is 映射状态码.
var (
	// ErrValidation 请求字段缺失或非法，400.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 上传、分片或对象不存在，404.
	ErrNotFound = errors.New("not found")
	// ErrSessionExpired 上传会话不存在或已过期，404.
	ErrSessionExpired = errors.New("upload session expired")
	// ErrInitFailed initiate 任一步骤失败，500.
	ErrInitFailed = errors.New("initiate upload failed")
)

// validate 用 rule 标签校验输入，失败时包装为 ErrValidation.
func validate(in any) error {
	if err := rule.ValidateStruct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
