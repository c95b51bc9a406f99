// Package validation проверяет форму входных данных (логин, регистрация, смена пароля,
// смена роли, заголовок Authorization) до любой работы с хранилищем или криптографией.
// Все функции чистые.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"cubcen/auth-service/internal/app/auth/entity"
)

// PasswordSymbols - допустимые спецсимволы для правила сложности пароля
const PasswordSymbols = "@$!%*?&"

const (
	MsgPasswordComplexity = "Password must contain at least one uppercase letter, one lowercase letter, one number and one special character (@$!%*?&)"
	MsgPasswordsMismatch  = "Passwords don't match"
	MsgInvalidRole        = "Invalid role. Must be ADMIN, OPERATOR, or VIEWER"
	MsgInvalidBearer      = "Authorization header must be in the format: Bearer <token>"
)

var bearerPattern = regexp.MustCompile(`^Bearer .+$`)

// FieldError - нарушение правила для одного поля
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors перечисляет все нарушенные поля запроса
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Field возвращает сообщение для поля или пустую строку
func (e *Errors) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Имена полей берём из json-тегов, чтобы ошибки совпадали с телом запроса
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "password_complexity", func(fl validator.FieldLevel) bool {
		return IsComplexPassword(fl.Field().String())
	})
	mustRegister(v, "role", func(fl validator.FieldLevel) bool {
		return entity.Role(fl.Field().String()).Valid()
	})
	mustRegister(v, "bearer", func(fl validator.FieldLevel) bool {
		return bearerPattern.MatchString(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// IsComplexPassword проверяет наличие строчной и заглавной латинской буквы,
// ASCII-цифры и спецсимвола. Прочие символы Unicode допустимы, но классы не закрывают.
func IsComplexPassword(password string) bool {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// Login проверяет запрос на вход
func Login(req *entity.LoginRequest) error {
	return structErr(req)
}

// Register проверяет запрос на регистрацию
func Register(req *entity.RegisterRequest) error {
	return structErr(req)
}

// ChangePassword проверяет запрос на смену пароля
func ChangePassword(req *entity.ChangePasswordRequest) error {
	return structErr(req)
}

// UpdateUserRole проверяет запрос на смену роли
func UpdateUserRole(req *entity.UpdateUserRoleRequest) error {
	return structErr(req)
}

// ParseBearer проверяет заголовок Authorization и возвращает токен
func ParseBearer(header string) (string, error) {
	if err := validate.Var(header, "required,bearer"); err != nil {
		return "", &Errors{Fields: []FieldError{{Field: "authorization", Message: MsgInvalidBearer}}}
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

func structErr(req any) error {
	if v := reflect.ValueOf(req); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return &Errors{Fields: []FieldError{{Field: "body", Message: "Request body is required"}}}
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Errors{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "eqfield":
		return MsgPasswordsMismatch
	case "password_complexity":
		return MsgPasswordComplexity
	case "role":
		return MsgInvalidRole
	}
	return label + " is invalid"
}

// humanize: confirmPassword -> Confirm password
func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
