package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const duckDuckGoURL = "https://api.duckduckgo.com/"

// WebSearch queries the DuckDuckGo instant answer API
type WebSearch struct {
	baseURL     string
	httpClient  *http.Client
	maxSnippets int
}

type WebSearchOption func(*WebSearch)

func WithWebSearchURL(baseURL string) WebSearchOption {
	return func(w *WebSearch) {
		w.baseURL = baseURL
	}
}

func WithWebSearchHTTPClient(client *http.Client) WebSearchOption {
	return func(w *WebSearch) {
		w.httpClient = client
	}
}

// WithMaxSnippets limits the number of related topic snippets in a result
func WithMaxSnippets(n int) WebSearchOption {
	return func(w *WebSearch) {
		w.maxSnippets = n
	}
}

func NewWebSearch(opts ...WebSearchOption) *WebSearch {
	w := &WebSearch{
		baseURL: duckDuckGoURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxSnippets: 5,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type ddgTopic struct {
	Text   string     `json:"Text"`
	Topics []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	Answer        string     `json:"Answer"`
	Definition    string     `json:"Definition"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// Search implements interfaces.WebSearcher. It returns "" when nothing is found.
func (w *WebSearch) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create request")
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to send request", goerr.V("query", query))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", goerr.New("web search returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var result ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", goerr.Wrap(err, "failed to decode response")
	}

	return result.snippets(w.maxSnippets), nil
}

func (r *ddgResponse) snippets(limit int) string {
	var lines []string
	for _, s := range []string{r.Answer, r.AbstractText, r.Definition} {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}

	var walk func(topics []ddgTopic)
	walk = func(topics []ddgTopic) {
		for _, t := range topics {
			if len(lines) >= limit {
				return
			}
			if text := strings.TrimSpace(t.Text); text != "" {
				lines = append(lines, text)
			}
			walk(t.Topics)
		}
	}
	walk(r.RelatedTopics)

	return strings.Join(lines, "\n")
}
