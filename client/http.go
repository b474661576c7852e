package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-2xx response from the service
type APIError struct {
	StatusCode int
	Message    string
	// Unapproved is set when a render was refused for unapproved panels
	Unapproved []int
}

func (e *APIError) Error() string {
	if len(e.Unapproved) > 0 {
		return fmt.Sprintf("API returned %d: %s (panels %v)", e.StatusCode, e.Message, e.Unapproved)
	}
	return fmt.Sprintf("API returned %d: %s", e.StatusCode, e.Message)
}

// doJSONRequest performs a JSON request with the given method, path, payload, and result.
// If result is nil, the response body is not decoded.
func (c *Client) doJSONRequest(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	var payload struct {
		Error      string `json:"error"`
		Unapproved []int  `json:"unapproved_panels"`
	}
	if json.Unmarshal(bodyBytes, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Unapproved = payload.Unapproved
	}
	return apiErr
}
