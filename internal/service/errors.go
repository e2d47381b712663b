package service

import (
	"errors"
	"sort"
	"strings"
)

// 业务错误
var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrImageNotFound      = errors.New("图片不存在")
	ErrSelfFollow         = errors.New("不能关注自己")
	ErrInvalidAction      = errors.New("无效的操作")
	ErrUserExists         = errors.New("用户名已存在")
	ErrEmailExists        = errors.New("邮箱已存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("用户已被禁用")
	ErrStoreUnavailable   = errors.New("存储服务不可用")
	ErrSearchDisabled     = errors.New("搜索服务未启用")
)

// ValidationError 表单校验错误，Fields 为字段到错误信息的映射
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
