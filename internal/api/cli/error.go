package cli

import (
	"errors"
	"fmt"

	"github.com/dtroode/moviecat/internal/catalog"
	"github.com/dtroode/moviecat/internal/model"
)

// message turns an error into the text shown to the user.
func message(err error) string {
	var apiErr *catalog.APIError

	switch {
	case errors.Is(err, model.ErrMissingFields):
		return "Please fill in all fields"
	case errors.Is(err, model.ErrInvalidCredentials):
		return "Invalid email or password. Try: user@netflix.com / password"
	case errors.Is(err, model.ErrEmailAlreadyRegistered):
		return "An account with this email already exists"
	case errors.Is(err, model.ErrNotAuthenticated):
		return "You are not signed in. Run: moviecat login"
	case errors.Is(err, catalog.ErrMissingAPIKey):
		return "Missing OMDb API key (set OMDB_API_KEY in .env.local)"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
