package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ratesResponse is the rate API's answer. The rates field is optional;
// a response without it means "nothing new for you".
type ratesResponse struct {
	Rates *Table `json:"rates"`
}

// fetchTable GETs the rate endpoint and returns the table, or nil when
// the response carried none.
func fetchTable(ctx context.Context, client *http.Client, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ratesource: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ratesource: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ratesource: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("ratesource: read body: %w", err)
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("ratesource: unmarshal: %w", err)
	}
	return parsed.Rates, nil
}
