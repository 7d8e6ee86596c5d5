package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterValidations 注册自定义校验标签：
//   - hhmm:    24 小时制 "HH:MM"
//   - isodate: "YYYY-MM-DD"
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return IsISODate(fl.Field().String())
	})
}

// IsClock 是否为合法的 "HH:MM"
func IsClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// IsISODate 是否为合法的 "YYYY-MM-DD"
func IsISODate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
