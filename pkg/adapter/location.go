package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
)

const ipinfoURL = "https://ipinfo.io/json"

// IPLocator resolves the caller's public IP address to a coarse location via ipinfo.io
type IPLocator struct {
	url        string
	token      string
	httpClient *http.Client
}

type IPLocatorOption func(*IPLocator)

func WithIPLocatorURL(url string) IPLocatorOption {
	return func(l *IPLocator) {
		l.url = url
	}
}

func WithIPInfoToken(token string) IPLocatorOption {
	return func(l *IPLocator) {
		l.token = token
	}
}

func NewIPLocator(opts ...IPLocatorOption) *IPLocator {
	l := &IPLocator{
		url: ipinfoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate implements interfaces.Locator. It returns nil when the city is unknown.
func (l *IPLocator) Locate(ctx context.Context) (*model.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, goerr.New("IP location lookup returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var loc model.Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response")
	}
	if loc.City == "" {
		return nil, nil
	}

	return &loc, nil
}
