package components

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-security/execengine/internal/execctx"
)

func TestNormalizeEmailUsernamesDedups(t *testing.T) {
	got := normalizeEmailUsernames([]string{"alice", "Alice@example.com", "bob", "", "  bob  "})
	assert.Equal(t, []string{"alice", "bob"}, got)
}

// atlassianAccounts maps a normalized username to its resolved account id,
// mirroring a tiny slice of an org directory.
var atlassianAccounts = map[string]string{
	"alice": "acc-alice-1",
	"bob":   "acc-bob-1",
}

func newAtlassianTestServer(t *testing.T, deleteCalls *int, deleteMu *sync.Mutex) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/orgs/org-1/users/search", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		accountID, ok := atlassianAccounts[query]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"accountId": accountID, "email": query + "@example.com"}},
		})
	})
	mux.HandleFunc("/admin/v1/orgs/org-1/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		deleteMu.Lock()
		*deleteCalls++
		deleteMu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(mux)
}

func TestAtlassianOffboardingInlineDedupsByAccountID(t *testing.T) {
	var deleteCalls int
	var deleteMu sync.Mutex
	server := newAtlassianTestServer(t, &deleteCalls, &deleteMu)
	defer server.Close()

	ec := execctx.New(context.Background(), "run-1", "tenant-a", nil, nil)
	inputs := map[string]interface{}{
		"orgId":          "org-1",
		"emailUsernames": []interface{}{"alice", "alice@example.com", "bob"},
		"credentials": map[string]interface{}{
			"baseUrl":     server.URL,
			"accessToken": "test-token",
		},
	}

	out, err := atlassianOffboardingInline(ec, nil, inputs)
	require.Nil(t, err)

	summary, ok := out["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), summary["requested"])
	assert.Equal(t, float64(2), summary["found"])
	assert.Equal(t, float64(2), summary["deleted"])
	assert.Equal(t, float64(0), summary["failed"])
	assert.Equal(t, 2, deleteCalls)

	removed, ok := out["removedAccountIds"].([]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"acc-alice-1", "acc-bob-1"}, removed)
}

func TestAtlassianOffboardingInlineMissingAccountIsNotCountedAsFailure(t *testing.T) {
	var deleteCalls int
	var deleteMu sync.Mutex
	server := newAtlassianTestServer(t, &deleteCalls, &deleteMu)
	defer server.Close()

	ec := execctx.New(context.Background(), "run-1", "tenant-a", nil, nil)
	inputs := map[string]interface{}{
		"orgId":          "org-1",
		"emailUsernames": []interface{}{"nobody"},
		"credentials": map[string]interface{}{
			"baseUrl":     server.URL,
			"accessToken": "test-token",
		},
	}

	out, err := atlassianOffboardingInline(ec, nil, inputs)
	require.Nil(t, err)

	summary, ok := out["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), summary["requested"])
	assert.Equal(t, float64(0), summary["found"])
	assert.Equal(t, float64(0), summary["deleted"])
	assert.Equal(t, float64(0), summary["failed"])
	assert.Equal(t, 0, deleteCalls)
}
