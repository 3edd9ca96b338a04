// Package csrf implements double-submit-cookie CSRF protection.
//
// A random token is set in a cookie and echoed in each form as a hidden
// field. Cross-origin attackers can make the browser send the cookie but
// cannot read it, so they cannot reproduce the token in the form body.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
)

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "csrf_token"

	// FormFieldName is the hidden form field carrying the token.
	FormFieldName = "csrf_token"

	// TokenLength is the number of random bytes per token.
	TokenLength = 32

	// CookieMaxAge keeps CSRF tokens shorter-lived than sessions.
	CookieMaxAge = 3600
)

// GenerateToken returns a base64 URL-encoded random token.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the cookie token with the form token in constant time.
func ValidateToken(cookieToken, formToken string) bool {
	if cookieToken == "" || formToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(formToken)) == 1
}

// ValidateRequest checks the form token against the cookie token.
// The caller must have already run ParseForm (or ParseMultipartForm).
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return ValidateToken(cookie.Value, r.FormValue(FormFieldName))
}

// SetCookie writes the CSRF token cookie. The cookie is intentionally not
// HttpOnly so the token stays comparable with the form copy on submit.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// TokenFromRequest returns the token from the request cookie, or "".
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureToken returns the request's existing CSRF token, minting and setting
// a fresh one when the cookie is absent. Handlers call this on GET so the
// token is in place before the form is rendered.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) (string, error) {
	if existing := TokenFromRequest(r); existing != "" {
		return existing, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	SetCookie(w, token, isSecure)
	return token, nil
}
