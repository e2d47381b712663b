package validate

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// 错误信息模板
var msgMap = map[string]string{
	"required": "不能为空",
	"min":      "长度不能小于%v",
	"max":      "长度不能大于%v",
	"email":    "必须是有效的邮箱地址",
	"url":      "必须是有效的网址",
	"http_url": "必须是有效的http(s)网址",
	"oneof":    "必须是[%v]中的一个",
	"gt":       "必须大于%v",
	"gte":      "必须大于等于%v",
	"imageext": "必须以图片扩展名结尾",
}

// New 创建校验器，字段名取json标签，并注册 imageext 规则
func New(allowedExtensions []string) *validator.Validate {
	v := validator.New()
	v.SetTagName("validate")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	exts := normalize(allowedExtensions)
	_ = v.RegisterValidation("imageext", func(fl validator.FieldLevel) bool {
		return HasAllowedExtension(fl.Field().String(), exts)
	})
	return v
}

func normalize(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// HasAllowedExtension URL路径是否以允许的扩展名结尾，忽略查询参数
func HasAllowedExtension(rawURL string, allowed []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" {
		return false
	}
	for _, a := range normalize(allowed) {
		if ext == a {
			return true
		}
	}
	return false
}

// FieldErrors 将校验错误转换为 字段 -> 中文提示
func FieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		if err != nil {
			fields["_"] = err.Error()
		}
		return fields
	}

	for _, fe := range errs {
		tmpl, ok := msgMap[fe.Tag()]
		if !ok {
			tmpl = "验证失败"
		}
		if fe.Param() != "" && strings.Contains(tmpl, "%v") {
			fields[fe.Field()] = fmt.Sprintf(tmpl, fe.Param())
		} else {
			fields[fe.Field()] = tmpl
		}
	}
	return fields
}
