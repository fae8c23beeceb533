package service

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidFullName = errors.New("姓名不能为空")
	ErrInvalidPhone    = errors.New("电话格式应为 (XXX)-XXX-XXXX")
	ErrInvalidSSN      = errors.New("SSN 格式应为 XXX-XX-XXXX")
	ErrInvalidZipCode  = errors.New("邮编不能为空")
	ErrWeakPassword    = errors.New("密码需 8-16 位，并同时包含大小写字母、数字和特殊字符")
	ErrPasswordMatch   = errors.New("两次输入的密码不一致")
)

var (
	phonePattern = regexp.MustCompile(`^\(\d{3}\)-\d{3}-\d{4}$`)
	ssnPattern   = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	digitPattern = regexp.MustCompile(`\d`)
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

func ValidateSSN(ssn string) error {
	if !ssnPattern.MatchString(ssn) {
		return ErrInvalidSSN
	}
	return nil
}

// ValidatePassword 8-16 位，大写、小写、数字、特殊字符各至少一个
func ValidatePassword(password string) error {
	if n := len(password); n < 8 || n > 16 {
		return ErrWeakPassword
	}
	if !upperPattern.MatchString(password) ||
		!lowerPattern.MatchString(password) ||
		!digitPattern.MatchString(password) ||
		!strings.ContainsAny(password, passwordSpecials) {
		return ErrWeakPassword
	}
	return nil
}

// MaskSSN 只保留后四位
func MaskSSN(ssn string) string {
	if len(ssn) < 4 {
		return ssn
	}
	return "***-**-" + ssn[len(ssn)-4:]
}
