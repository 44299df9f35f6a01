package helpers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DebugMode controls whether detailed debug logging is enabled
var DebugMode bool = false

// DebugLog logs a message only if debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	if DebugMode {
		fmt.Printf(DebugPrefix+format+"\n", args...)
	}
}

// DebugLogHTTP logs HTTP-related debug messages only if debug mode is enabled
func DebugLogHTTP(format string, args ...interface{}) {
	if DebugMode {
		fmt.Printf(DebugHTTPPrefix+format+"\n", args...)
	}
}

// NormalizeURL removes trailing slashes from URLs to prevent double-slash issues
func NormalizeURL(urlStr string) string {
	return strings.TrimRight(urlStr, "/")
}

// GetFileType determines the RDF serialization format based on file extension
func GetFileType(filename string) string {
	filename = strings.ToLower(filename)

	switch {
	case strings.HasSuffix(filename, ExtCottas):
		return FormatCottas
	case strings.HasSuffix(filename, ExtRDF) || strings.HasSuffix(filename, ExtXML) || strings.HasSuffix(filename, ExtOWL):
		return FormatRDFXML
	case strings.HasSuffix(filename, ExtTTL) || strings.HasSuffix(filename, ExtTurtle):
		return FormatTurtle
	case strings.HasSuffix(filename, ExtNTrips):
		return FormatNTriples
	case strings.HasSuffix(filename, ExtN3):
		return FormatN3
	case strings.HasSuffix(filename, ExtJSONLD) || strings.HasSuffix(filename, ExtJSON):
		return FormatJSONLD
	case strings.HasSuffix(filename, ExtTriG):
		return FormatTriG
	case strings.HasSuffix(filename, ExtNQuads) || strings.HasSuffix(filename, ".nquads"):
		return FormatNQuads
	default:
		return FormatUnknown
	}
}

// DebugHTTPTransport wraps an http.RoundTripper to log request/response details
type DebugHTTPTransport struct {
	Transport http.RoundTripper
}

// RoundTrip implements http.RoundTripper interface with debugging
func (d *DebugHTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	DebugLogHTTP("%s %s", req.Method, req.URL.String())

	resp, err := d.Transport.RoundTrip(req)
	if err != nil {
		DebugLogHTTP("Request failed: %v", err)
		return resp, err
	}

	DebugLogHTTP("Response Status: %d %s", resp.StatusCode, resp.Status)

	// Only error bodies are dumped; the body is restored for the caller
	if DebugMode && resp.StatusCode >= 400 {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			DebugLogHTTP("Failed to read error response body: %v", readErr)
		} else {
			DebugLogHTTP("===== ERROR RESPONSE BODY (Status %d) =====", resp.StatusCode)
			fmt.Printf("%s\n", string(bodyBytes))
			DebugLogHTTP("===== END ERROR RESPONSE BODY =====")
			resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}
	}

	return resp, err
}

// EnableHTTPDebugLogging wraps the HTTP client with debug logging
func EnableHTTPDebugLogging(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}

	if client.Transport == nil {
		client.Transport = http.DefaultTransport
	}

	client.Transport = &DebugHTTPTransport{
		Transport: client.Transport,
	}

	return client
}
