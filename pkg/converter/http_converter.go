package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/apperror"
)

// HTTPConverter calls an external document-to-markdown service (a docling
// style converter exposed over HTTP). Plain text formats short-circuit
// locally; everything else is shipped as multipart upload.
type HTTPConverter struct {
	BaseURL string
	Client  *http.Client
}

var _ Converter = &HTTPConverter{}

func NewHTTPConverter(baseURL string) *HTTPConverter {
	return &HTTPConverter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type convertResponse struct {
	Markdown string `json:"markdown"`
}

func (c *HTTPConverter) Convert(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedExtensions[ext] {
		return "", apperror.ErrUnsupportedFormat
	}
	if plainTextExtensions[ext] {
		return string(data), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", &apperror.ConversionError{DocID: filename, Cause: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &apperror.ConversionError{DocID: filename, Cause: err}
	}
	if err := writer.Close(); err != nil {
		return "", &apperror.ConversionError{DocID: filename, Cause: err}
	}

	endpoint := c.BaseURL + "/v1/convert"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", &apperror.ConversionError{DocID: filename, Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.Client.Do(req)
	if err != nil {
		return "", &apperror.ConversionError{DocID: filename, Cause: err}
	}
	defer res.Body.Close()

	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &apperror.ConversionError{DocID: filename, Cause: err}
	}

	switch res.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusUnsupportedMediaType:
		return "", apperror.ErrUnsupportedFormat
	default:
		return "", &apperror.ConversionError{
			DocID: filename,
			Cause: fmt.Errorf("converter returned status %d: %s", res.StatusCode, string(resBytes)),
		}
	}

	var parsed convertResponse
	if err := json.Unmarshal(resBytes, &parsed); err != nil {
		return "", &apperror.ConversionError{DocID: filename, Cause: err}
	}
	if strings.TrimSpace(parsed.Markdown) == "" {
		return "", &apperror.ConversionError{
			DocID: filename,
			Cause: fmt.Errorf("conversion produced no content"),
		}
	}
	return parsed.Markdown, nil
}
