package gallery

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotDataURI is returned when a string does not start with "data:".
var ErrNotDataURI = errors.New("not a data URI")

// EncodeDataURI inlines data as a base64 data URI of the given MIME type.
func EncodeDataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a data URI into its MIME type and payload. Both the
// base64 and the percent-encoded forms are accepted.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload separator")
	}
	mime := header
	isBase64 := false
	if strings.HasSuffix(header, ";base64") {
		mime = strings.TrimSuffix(header, ";base64")
		isBase64 = true
	}
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if mime == "" {
		mime = "text/plain"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode base64 payload: %w", err)
		}
		return mime, data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to unescape payload: %w", err)
	}
	return mime, []byte(text), nil
}
