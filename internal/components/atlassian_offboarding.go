package components

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ridgeline-security/execengine/internal/contract"
	"github.com/ridgeline-security/execengine/internal/dispatch"
	"github.com/ridgeline-security/execengine/internal/errs"
	"github.com/ridgeline-security/execengine/internal/execctx"
	"github.com/ridgeline-security/execengine/internal/registry"
	"github.com/ridgeline-security/execengine/internal/schema"
)

func init() {
	registry.Register(&registry.Definition{
		ID:          "security.offboarding.atlassian",
		Label:       "Atlassian Offboarding",
		Description: "Finds and removes Atlassian org accounts matching a list of email usernames.",
		InputSchema: schema.Ports{
			"orgId":          schema.Text().Required(),
			"emailUsernames": schema.List(schema.Text().Required()).Required(),
			"credentials":    schema.Contract(contract.AtlassianCredential).Required(),
		},
		OutputSchema: schema.Ports{
			"removedAccountIds": schema.List(schema.Text()),
			"summary":           schema.JSON().Required(),
		},
		Runner: dispatch.RunnerConfig{
			Kind: dispatch.RunnerInline,
		},
		Inline: atlassianOffboardingInline,
	})
}

// atlassianAccountMatch is the subset of an org-directory search result
// this component needs to resolve an email username to an account id.
type atlassianAccountMatch struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

func atlassianOffboardingInline(ctx *execctx.Context, params, inputs map[string]interface{}) (map[string]interface{}, *errs.Error) {
	orgID, _ := inputs["orgId"].(string)
	usernames := toStringSlice(inputs["emailUsernames"])
	creds, _ := inputs["credentials"].(map[string]interface{})
	baseURL, _ := creds["baseUrl"].(string)
	accessToken, _ := creds["accessToken"].(string)

	client := &atlassianClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
	}

	targets := normalizeEmailUsernames(usernames)

	removed := make([]interface{}, 0, len(targets))
	seen := map[string]bool{}
	found, deleted, failed := 0, 0, 0

	for _, target := range targets {
		match, err := client.searchAccount(ctx.StdContext(), orgID, target)
		if err != nil {
			failed++
			ctx.Logger().Warn("atlassian account search failed", zap.String("target", target), zap.Error(err))
			continue
		}
		if match == nil {
			continue
		}
		found++
		if seen[match.AccountID] {
			continue
		}
		seen[match.AccountID] = true

		if err := client.deleteAccount(ctx.StdContext(), orgID, match.AccountID); err != nil {
			failed++
			ctx.Logger().Warn("atlassian account delete failed", zap.String("accountId", match.AccountID), zap.Error(err))
			continue
		}
		deleted++
		removed = append(removed, match.AccountID)
	}

	return map[string]interface{}{
		"removedAccountIds": removed,
		"summary": map[string]interface{}{
			"requested": float64(len(targets)),
			"found":     float64(found),
			"deleted":   float64(deleted),
			"failed":    float64(failed),
		},
	}, nil
}

// normalizeEmailUsernames lower-cases each entry and strips anything from
// "@" onward, then de-duplicates — "alice" and "alice@example.com" both
// resolve to one search target.
func normalizeEmailUsernames(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range raw {
		u = strings.ToLower(strings.TrimSpace(u))
		if at := strings.IndexByte(u, '@'); at >= 0 {
			u = u[:at]
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

type atlassianClient struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

func (c *atlassianClient) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// searchAccount looks up org members by username and returns the first
// match, or nil if none were found.
func (c *atlassianClient) searchAccount(ctx context.Context, orgID, username string) (*atlassianAccountMatch, error) {
	path := fmt.Sprintf("/admin/v1/orgs/%s/users/search?query=%s", orgID, url.QueryEscape(username))
	resp, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, fmt.Errorf("failed to search org directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body struct {
		Data []atlassianAccountMatch `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	return &body.Data[0], nil
}

func (c *atlassianClient) deleteAccount(ctx context.Context, orgID, accountID string) error {
	path := fmt.Sprintf("/admin/v1/orgs/%s/users/%s", orgID, accountID)
	resp, err := c.do(ctx, http.MethodDelete, path)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
