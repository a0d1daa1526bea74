package model

import "context"

// AccountStore defines operations over registered accounts and the current session.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	Login(ctx context.Context, email, password string) (User, error)
	Signup(ctx context.Context, name, email, password string) (User, error)
	Logout(ctx context.Context) error
	CurrentUser() (User, bool)
}

// Account represents a registered account with its plaintext password.
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// User is the public view of an account. It carries no password.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public returns the account without its password.
func (a Account) Public() User {
	return User{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
	}
}

// DemoAccount is seeded into an empty accounts collection.
func DemoAccount() Account {
	return Account{
		ID:       "1",
		Email:    "user@netflix.com",
		Name:     "Netflix User",
		Password: "password",
	}
}

// ValidateCredentials checks that login form fields are filled in.
func ValidateCredentials(email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}
	return nil
}

// ValidateSignup checks that signup form fields are filled in.
func ValidateSignup(name, email, password string) error {
	if name == "" {
		return ErrMissingFields
	}
	return ValidateCredentials(email, password)
}
