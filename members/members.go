// Package members validates the login and signup forms before they are sent.
package members

import (
	"regexp"
	"strings"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
)

var (
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9]([-_.]?[A-Za-z0-9])*@[A-Za-z0-9]([-_.]?[A-Za-z0-9])*\.[A-Za-z]{2,3}$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9]{5,}$`)
)

const PasswordHint = "Passwords need at least 5 letters or digits."

type LoginForm struct {
	Email    string
	Password string
}

type SignupForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Normalise trims the fields that are never meant to carry whitespace.
func (f SignupForm) Normalise() SignupForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	return f
}

func ValidateLogin(form LoginForm) error {
	if strings.TrimSpace(form.Email) == "" || form.Password == "" {
		return apperrors.NewValidationError("email", "Please enter both your email and password.")
	}
	return nil
}

// ValidateSignup checks fields in form order and reports the first problem.
func ValidateSignup(form SignupForm) error {
	form = form.Normalise()

	switch {
	case form.Name == "":
		return apperrors.NewValidationError("name", "Please enter your name.")
	case form.Email == "":
		return apperrors.NewValidationError("email", "Please enter your email.")
	case !emailPattern.MatchString(form.Email):
		return apperrors.NewValidationError("email", "Please enter a valid email address.")
	case form.Password == "":
		return apperrors.NewValidationError("password", "Please enter a password.")
	case form.ConfirmPassword == "":
		return apperrors.NewValidationError("confirmPassword", "Please confirm your password.")
	case form.Password != form.ConfirmPassword:
		return apperrors.NewValidationError("confirmPassword", "The passwords do not match.")
	case !passwordPattern.MatchString(form.Password):
		return apperrors.NewValidationError("password", PasswordHint)
	}
	return nil
}
