// Package rule 封装 go-playground/validator，结构体使用 rule 标签声明校验规则.
//
// 与 gin 的 binding 引擎相互独立，处理器先 ShouldBindJSON 再调用 ValidateStruct.
// 错误信息里的字段名取 json 标签，例如 "file_id: required".
//
// 除内置规则外注册了：
//
//	fileid     非空，最长 64 字节，不含路径分隔符与控制字符，不能是 "." 或 ".."
//	objectkey  非空，最长 1024 字节，不以 "/" 开头，不含控制字符
package rule

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	tagName         = "rule"
	maxFileIDLen    = 64
	maxObjectKeyLen = 1024
)

var (
	inst *validator.Validate
	once sync.Once
)

func initValidator() {
	inst = validator.New(validator.WithRequiredStructEnabled())
	inst.SetTagName(tagName)
	inst.RegisterTagNameFunc(jsonName)

	_ = inst.RegisterValidation("fileid", isFileID)
	_ = inst.RegisterValidation("objectkey", isObjectKey)
}

// jsonName 字段名取 json 标签，没有时用 Go 字段名.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")

	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

func isFileID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > maxFileIDLen || s == "." || s == ".." {
		return false
	}

	return !strings.ContainsFunc(s, func(r rune) bool {
		return r == '/' || r == '\\' || unicode.IsControl(r)
	})
}

func isObjectKey(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > maxObjectKeyLen || strings.HasPrefix(s, "/") {
		return false
	}

	return !strings.ContainsFunc(s, unicode.IsControl)
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	once.Do(initValidator)

	return inst
}

func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	return Engine().RegisterValidation(tag, fn, opts...)
}

func RegisterAlias(alias, rules string) {
	Engine().RegisterAlias(alias, rules)
}

// FieldError 单个字段的校验失败.
type FieldError struct {
	Field string // 带路径的 json 字段名，例如 parts[0].ETag
	Rule  string
	Param string
}

func (e FieldError) String() string {
	r := e.Rule
	if e.Param != "" {
		r += "=" + e.Param
	}

	if e.Field == "" {
		return r
	}

	return e.Field + ": " + r
}

// Errors 一次校验的全部失败字段.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.String()
	}

	return strings.Join(parts, "; ")
}

// ValidateStruct 校验结构体.字段不合法时返回 Errors，其余错误原样返回.
func ValidateStruct(s any) error {
	return convert(Engine().Struct(s))
}

// ValidateVar 按规则校验单个变量，例如 ValidateVar(key, "objectkey").
func ValidateVar(field any, tag string) error {
	return convert(Engine().Var(field, tag))
}

func convert(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}

	out := make(Errors, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{Field: fieldPath(fe), Rule: fe.Tag(), Param: fe.Param()})
	}

	return out
}

// fieldPath 去掉顶层结构体名，ValidateVar 的错误没有命名空间.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}

	if ns != "" {
		return ns
	}

	return fe.Field()
}
