package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/jorenkoyen/swarmgate/version"
)

type Client struct {
	base *url.URL
	http *http.Client
}

// NewClientFromEnv will create a new API client for the current environment it's running in.
func NewClientFromEnv() *Client {
	return &Client{
		base: &url.URL{Scheme: "http", Host: "127.0.0.1:6440"},
		http: http.DefaultClient,
	}
}

// NewClient creates a new API client with the specified base URL and HTTP client.
func NewClient(base *url.URL, http *http.Client) *Client {
	return &Client{
		base: base,
		http: http,
	}
}

// checkResponseError will check the response of the HTTP server if it contains any error.
func checkResponseError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode}

	err := json.Unmarshal(body, &apiError)
	if err != nil {
		// Use the full body as the message if we fail to decode a response.
		apiError.ErrorMessage = string(body)
	}

	return apiError
}

// do will execute the HTTP request.
func (c *Client) do(ctx context.Context, method, path string, reqBody any, respData any) error {
	var reader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}

		reader = bytes.NewReader(raw)
	}

	endpoint := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	output, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if err = checkResponseError(res, output); err != nil {
		return err
	}

	if len(output) > 0 && respData != nil {
		if err = json.Unmarshal(output, respData); err != nil {
			return err
		}
	}
	return nil
}

// RouteList will return the current routing table of the proxy.
func (c *Client) RouteList(ctx context.Context) ([]Mapping, error) {
	var list RouteList
	if err := c.do(ctx, http.MethodGet, "/", nil, &list); err != nil {
		return nil, err
	}
	return list.Mappings, nil
}

// RouteApply will register or overwrite the route for the given domain.
func (c *Client) RouteApply(ctx context.Context, domain string, backend string) error {
	return c.do(ctx, http.MethodPost, "/"+domain+"/"+backend, nil, nil)
}

// RouteRemove will remove the route for the given domain.
func (c *Client) RouteRemove(ctx context.Context, domain string) error {
	return c.do(ctx, http.MethodDelete, "/"+domain, nil, nil)
}

// CertificateRequest will trigger the full issuance flow for a domain.
func (c *Client) CertificateRequest(ctx context.Context, request CertificateRequest) (*CertificateRecord, error) {
	var record CertificateRecord
	if err := c.do(ctx, http.MethodPost, "/certificates", request, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CertificateStatus will return the lifecycle state of a domain's certificate.
func (c *Client) CertificateStatus(ctx context.Context, domain string) (*CertificateRecord, error) {
	var record CertificateRecord
	if err := c.do(ctx, http.MethodGet, "/certificates/"+domain, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
