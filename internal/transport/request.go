package transport

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/lookersync/pkg/errors"
)

// DecodeResponse decodes a JSON response into target. Any non-2xx status
// becomes an *errors.APIError carrying the response body. A nil target
// discards the body.
func DecodeResponse(resp *http.Response, target any) error {
	body, err := readBody(resp)
	if err != nil {
		return err
	}

	if err := checkStatus(resp, body); err != nil {
		return err
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint(resp), err)
	}
	return nil
}

// ReadText returns the body of a successful response as a string.
func ReadText(resp *http.Response) (string, error) {
	body, err := readBody(resp)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp, body); err != nil {
		return "", err
	}
	return string(body), nil
}

func checkStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &errors.APIError{
		StatusCode: resp.StatusCode,
		Message:    apiMessage(body),
		Endpoint:   endpoint(resp),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.Instance = resp.Request.URL.Scheme + "://" + resp.Request.URL.Host
	}
	return apiErr
}

// apiMessage prefers the "message" field of a Looker error document.
func apiMessage(body []byte) string {
	var doc struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && doc.Message != "" {
		return doc.Message
	}
	return string(body)
}

func endpoint(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.Method + " " + resp.Request.URL.Path
}
