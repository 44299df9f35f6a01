package endpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"evalgo.org/rdfendpoint/auth"
	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/rdfio"
	"evalgo.org/rdfendpoint/internal/sparql"
	"evalgo.org/rdfendpoint/web/templates"
)

const (
	mimeSPARQLQuery  = "application/sparql-query"
	mimeSPARQLUpdate = "application/sparql-update"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Triples int    `json:"triples"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

// protocolRequest is a decoded SPARQL protocol request.
type protocolRequest struct {
	query  string
	update string
	format string
}

// handleSPARQL runs a query or update, or describes the service.
func (s *Server) handleSPARQL(c echo.Context) error {
	req, err := readRequest(c)
	if err != nil {
		return err
	}

	switch {
	case req.update != "":
		return s.runUpdate(c, req.update)
	case req.query != "":
		return s.runQuery(c, req)
	}

	if acceptsHTML(c.Request().Header.Get(echo.HeaderAccept)) {
		page := templates.QueryPage(s.cfg.Title, s.cfg.Description, c.Request().URL.Path, s.cfg.ExampleQuery)
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
		c.Response().WriteHeader(http.StatusOK)
		return page.Render(c.Request().Context(), c.Response().Writer)
	}
	return s.describe(c)
}

func readRequest(c echo.Context) (protocolRequest, error) {
	r := c.Request()
	req := protocolRequest{format: c.QueryParam("format")}

	if r.Method == http.MethodGet {
		if c.QueryParam("update") != "" {
			return req, echo.NewHTTPError(http.StatusBadRequest, "Updates must be sent with POST")
		}
		req.query = c.QueryParam("query")
		return req, nil
	}

	mt, _, err := mime.ParseMediaType(r.Header.Get(echo.HeaderContentType))
	if err != nil && r.Header.Get(echo.HeaderContentType) != "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "Invalid Content-Type header")
	}

	switch mt {
	case mimeSPARQLQuery, mimeSPARQLUpdate:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
		}
		if mt == mimeSPARQLQuery {
			req.query = string(body)
		} else {
			req.update = string(body)
		}
	case echo.MIMEApplicationForm, echo.MIMEMultipartForm, "":
		req.query = c.FormValue("query")
		req.update = c.FormValue("update")
		if f := c.FormValue("format"); f != "" {
			req.format = f
		}
	default:
		return req, echo.NewHTTPError(http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported Content-Type %q", mt))
	}

	if req.query != "" && req.update != "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "Send either a query or an update, not both")
	}
	return req, nil
}

func (s *Server) runQuery(c echo.Context, req protocolRequest) error {
	ctx, cancel := s.queryContext(c.Request().Context())
	defer cancel()

	res, err := s.store.Query(ctx, req.query)
	if err != nil {
		return err
	}

	accept := c.Request().Header.Get(echo.HeaderAccept)
	var buf bytes.Buffer
	var contentType string
	if res.IsGraph() {
		format := graphFormat(req.format, accept)
		if err := res.WriteGraph(&buf, format); err != nil {
			return domain.NewOperationError("query", "failed to serialize graph result", err)
		}
		contentType = rdfio.MediaType(format)
	} else {
		format := resultFormat(req.format, accept)
		if err := res.Write(&buf, format); err != nil {
			return domain.NewOperationError("query", "failed to serialize results", err)
		}
		contentType = format.MediaType()
	}
	return c.Blob(http.StatusOK, contentType+"; charset=utf-8", buf.Bytes())
}

func (s *Server) queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout > 0 {
		return context.WithTimeout(parent, s.cfg.QueryTimeout)
	}
	return context.WithCancel(parent)
}

func (s *Server) runUpdate(c echo.Context, update string) error {
	if !s.cfg.EnableUpdate {
		return echo.NewHTTPError(http.StatusForbidden, "Updates are disabled on this endpoint")
	}
	subject, err := s.authorize(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.queryContext(c.Request().Context())
	defer cancel()

	start := time.Now()
	err = s.store.Update(ctx, update)
	s.journal(c, subject, update, start, err)
	if err != nil {
		return err
	}

	s.log.WithField("subject", subject).Info("Update applied")
	return c.NoContent(http.StatusNoContent)
}

// journal records an update attempt when a journal is configured.
func (s *Server) journal(c echo.Context, subject, update string, start time.Time, updateErr error) {
	if s.cfg.Journal == nil {
		return
	}
	entry := auth.AuditEntry{
		Timestamp: start,
		Subject:   subject,
		Action:    "update",
		Request:   update,
		Backend:   s.store.Backend().String(),
		Success:   updateErr == nil,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Duration:  float64(time.Since(start).Microseconds()) / 1000,
	}
	if updateErr != nil {
		entry.ErrorMsg = updateErr.Error()
	}
	if err := s.cfg.Journal.LogEntry(entry); err != nil {
		s.log.WithError(err).Warn("Failed to write update journal")
	}
}

// handleHealth reports the store size.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "healthy", Backend: s.store.Backend().String()}
	n, err := s.store.Len(c.Request().Context())
	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Triples = n
	return c.JSON(http.StatusOK, resp)
}

// errorHandler maps store and engine errors to protocol status codes.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = statusFor(err)
	}
	if he.Code >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.Request().URL.Path).Error("Request failed")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	if msg, ok := he.Message.(string); ok && !strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "json") {
		_ = c.String(he.Code, msg)
		return
	}
	_ = c.JSON(he.Code, map[string]interface{}{"message": he.Message})
}

func statusFor(err error) *echo.HTTPError {
	var syntax *sparql.SyntaxError
	switch {
	case errors.As(err, &syntax):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case domain.IsReadOnly(err):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case domain.IsUsage(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Query timed out")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
