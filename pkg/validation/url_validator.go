package validation

import (
	"net/url"
	"strings"

	apperrors "go-photo-sharpness/internal/errors"
)

// LocationValidator checks a photo location before it is handed to a
// storage backend
type LocationValidator interface {
	Validate(location string) error
}

// URLValidator handles URL validation logic
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// Validate implements LocationValidator
func (v *URLValidator) Validate(location string) error {
	return v.ValidateImageURL(location)
}

// ValidateImageURL validates if the provided URL is acceptable for image processing
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list.
// Entries starting with a dot match any subdomain.
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range v.allowedHosts {
		allowed = strings.ToLower(allowed)
		if host == allowed {
			return true
		}
		if strings.HasPrefix(allowed, ".") && strings.HasSuffix(host, allowed) {
			return true
		}
	}
	return false
}

// NewBlobURLValidator accepts https URLs on Azure Blob Storage endpoints
func NewBlobURLValidator() *URLValidator {
	return NewURLValidatorWithOptions([]string{"https"}, []string{".blob.core.windows.net"})
}

// PathValidator accepts slash-separated relative paths, optionally as
// file:// URLs, that stay inside the photo root
type PathValidator struct{}

// NewPathValidator creates a validator for local photo locations
func NewPathValidator() *PathValidator {
	return &PathValidator{}
}

// Validate implements LocationValidator
func (PathValidator) Validate(location string) error {
	name := strings.TrimSpace(location)
	if name == "" {
		return apperrors.NewValidationError("path cannot be empty", nil)
	}
	if strings.HasPrefix(name, "file://") {
		u, err := url.Parse(name)
		if err != nil {
			return apperrors.NewValidationError("Invalid URL format", err)
		}
		name = u.Host + u.Path
	} else if strings.Contains(name, "://") {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if strings.ContainsRune(name, 0) || strings.Contains(name, `\`) {
		return apperrors.NewValidationError("path contains invalid characters", nil)
	}
	for _, segment := range strings.Split(strings.Trim(name, "/"), "/") {
		if segment == ".." {
			return apperrors.NewValidationError("path escapes the photo root", nil)
		}
	}
	return nil
}
