package endpoint

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"evalgo.org/rdfendpoint/auth"
)

const (
	apiKeyHeader     = "x-api-key"
	anonymousSubject = "anonymous"
	apiKeySubject    = "api-key"
)

// authorize checks the update credentials required by the auth mode and
// returns the subject recorded in the journal.
func (s *Server) authorize(c echo.Context) (string, error) {
	if s.mode == auth.AuthModeNone {
		return anonymousSubject, nil
	}

	apiKey := c.Request().Header.Get(apiKeyHeader)
	token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))

	switch s.mode {
	case auth.AuthModeKey:
		return s.checkKey(apiKey)
	case auth.AuthModeToken:
		return s.checkToken(token)
	default:
		if token != "" {
			return s.checkToken(token)
		}
		if apiKey != "" {
			return s.checkKey(apiKey)
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing x-api-key header or bearer token")
	}
}

func (s *Server) checkKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing x-api-key header")
	}
	if !auth.CheckAPIKey(apiKey, s.cfg.APIKeyHash) {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid API key")
	}
	return apiKeySubject, nil
}

func (s *Server) checkToken(token string) (string, error) {
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
	}
	claims, err := auth.ValidateToken(token, s.cfg.TokenSecret)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid token: "+err.Error())
	}
	return claims.Subject, nil
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
