package garage

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email,max=255"`
	Password string `form:"password" validate:"required"`
}

// RegistrationInput is the submitted registration form.
type RegistrationInput struct {
	Name                 string `form:"name" validate:"required,max=255"`
	Email                string `form:"email" validate:"required,email,max=255"`
	Password             string `form:"password" validate:"required,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `form:"password_confirmation"`
}

// PasswordInput is the submitted set-password form.
type PasswordInput struct {
	Password             string `form:"password" validate:"required,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `form:"password_confirmation"`
}

func LoginInputFromRequest(r *http.Request) LoginInput {
	return LoginInput{
		Email:    NormalizeEmail(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func RegistrationInputFromRequest(r *http.Request) RegistrationInput {
	return RegistrationInput{
		Name:                 strings.TrimSpace(r.PostFormValue("name")),
		Email:                NormalizeEmail(r.PostFormValue("email")),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}
}

func PasswordInputFromRequest(r *http.Request) PasswordInput {
	return PasswordInput{
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}
}

func (in LoginInput) Validate() error { return validateStruct(in) }

// Old returns the fields safe to echo back into the form.
func (in LoginInput) Old() map[string]string {
	return map[string]string{"email": in.Email}
}

func (in RegistrationInput) Validate() error {
	if err := validateStruct(in); err != nil {
		return err
	}
	return checkPasswordLength(in.Password)
}

func (in RegistrationInput) Old() map[string]string {
	return map[string]string{"name": in.Name, "email": in.Email}
}

func (in PasswordInput) Validate() error {
	if err := validateStruct(in); err != nil {
		return err
	}
	return checkPasswordLength(in.Password)
}

func checkPasswordLength(pw string) error {
	if len(pw) > maxPasswordBytes {
		return NewValidationError("password", fmt.Sprintf("The password may not be greater than %d bytes.", maxPasswordBytes))
	}
	return nil
}

func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := FieldErrors{}
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", name, fe.Param())
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", name)
	}
	return fmt.Sprintf("The %s is invalid.", name)
}
