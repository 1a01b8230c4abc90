package httpapi

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

func (r *registerRequest) validate(minPassword int) fieldErrors {
	errs := fieldErrors{}

	r.Name = strings.TrimSpace(r.Name)
	switch {
	case r.Name == "":
		errs.add("name", "Name is required.")
	case utf8.RuneCountInString(r.Name) > 255:
		errs.add("name", "Name must not exceed 255 characters.")
	}

	r.Email = strings.TrimSpace(r.Email)
	switch {
	case r.Email == "":
		errs.add("email", "Email is required.")
	case !validEmail(r.Email):
		errs.add("email", "Please enter a valid email address.")
	}

	switch {
	case r.Password == "":
		errs.add("password", "Password is required.")
	case utf8.RuneCountInString(r.Password) < minPassword:
		errs.add("password", passwordTooShort(minPassword))
	case r.Password != r.PasswordConfirmation:
		errs.add("password", "Password confirmation does not match.")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r *loginRequest) validate() fieldErrors {
	errs := fieldErrors{}
	r.Email = strings.TrimSpace(r.Email)
	switch {
	case r.Email == "":
		errs.add("email", "Email is required.")
	case !validEmail(r.Email):
		errs.add("email", "Please enter a valid email address.")
	}
	if r.Password == "" {
		errs.add("password", "Password is required.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func passwordTooShort(min int) string {
	return fmt.Sprintf("Password must be at least %d characters long.", min)
}
