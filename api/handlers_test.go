package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findback/lostfound-engine/api"
	"github.com/findback/lostfound-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	handler := api.NewHandler(store, log)
	server := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, server *httptest.Server, method, path, uid string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-User-ID", uid)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func doRequestList(t *testing.T, server *httptest.Server, path, uid string) (*http.Response, []map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	require.NoError(t, err)
	if uid != "" {
		req.Header.Set("X-User-ID", uid)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createUser(t *testing.T, server *httptest.Server, uid string, points int) {
	t.Helper()
	resp, _ := doRequest(t, server, http.MethodPost, "/api/users", "", map[string]any{
		"uid": uid, "name": "User " + uid, "points": points,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func createReport(t *testing.T, server *httptest.Server, side, uid, category string) string {
	t.Helper()
	resp, body := doRequest(t, server, http.MethodPost, "/api/items/"+side, uid, map[string]any{
		"item_name":   "Test item",
		"category":    category,
		"reported_on": "2026-08-20",
		"latitude":    37.5665,
		"longitude":   126.9780,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func createReward(t *testing.T, server *httptest.Server, stock, price int) string {
	t.Helper()
	resp, body := doRequest(t, server, http.MethodPost, "/api/rewards", "", map[string]any{
		"name":       "Coffee Voucher",
		"stock":      stock,
		"price":      price,
		"expiration": "2027-06-30",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

// =============================================================================
// REPORT ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateFoundReport(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-finder", 0)

	id := createReport(t, server, "found", "u-finder", "phone")
	assert.True(t, strings.HasPrefix(id, "fou-"), "id %q", id)

	resp, body := doRequest(t, server, http.MethodGet, "/api/items/"+id, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "found", body["variant"])
	assert.Equal(t, "open", body["status"])
	assert.Equal(t, "u-finder", body["reporter_id"])
}

func TestAPI_CreateLostReport_IDPrefix(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-owner", 0)

	id := createReport(t, server, "lost", "u-owner", "watch")
	assert.True(t, strings.HasPrefix(id, "los-"), "id %q", id)
}

func TestAPI_CreateReport_MissingIdentity(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/items/found", "", map[string]any{
		"item_name": "Thing", "category": "phone", "reported_on": "2026-08-20",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CreateReport_MissingFields(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-1", 0)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/items/found", "u-1", map[string]any{
		"item_name": "Thing",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetReport_NotFound(t *testing.T) {
	server := newTestServer(t)
	resp, _ := doRequest(t, server, http.MethodGet, "/api/items/fou-missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_SearchReports_ByCategory(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-1", 0)
	createReport(t, server, "found", "u-1", "phone")
	createReport(t, server, "found", "u-1", "wallet")

	resp, list := doRequestList(t, server, "/api/items/found?category=phone", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "phone", list[0]["category"])
}

// =============================================================================
// CONFIRMATION FLOW TESTS
// =============================================================================

func TestAPI_ConfirmFlow_CompletesAndPays(t *testing.T) {
	// GIVEN: A found report and two participants
	// WHEN: The owner then the finder confirm over HTTP
	// THEN: The exchange completes and the finder's balance reflects the
	//       award end to end

	server := newTestServer(t)
	createUser(t, server, "u-finder", 0)
	createUser(t, server, "u-owner", 0)
	id := createReport(t, server, "found", "u-finder", "phone")

	resp, body := doRequest(t, server, http.MethodPost, "/api/items/"+id+"/confirm", "u-owner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "partial", body["status"])
	assert.Equal(t, false, body["completed"])

	resp, body = doRequest(t, server, http.MethodPost, "/api/items/"+id+"/confirm", "u-finder", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "complete", body["status"])
	assert.Equal(t, true, body["completed"])
	assert.Equal(t, "u-finder", body["resolver_id"])

	awarded := int(body["points_awarded"].(float64))
	assert.GreaterOrEqual(t, awarded, 35)
	assert.LessOrEqual(t, awarded, 70)

	resp, user := doRequest(t, server, http.MethodGet, "/api/users/u-finder", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(awarded), user["points"])

	resp, entries := doRequestList(t, server, "/api/users/u-finder/ledger", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, "credit", entries[0]["type"])
	assert.Equal(t, id, entries[0]["reference_id"])
}

func TestAPI_Confirm_AfterCompletion_Conflict(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-finder", 0)
	createUser(t, server, "u-owner", 0)
	id := createReport(t, server, "found", "u-finder", "card")

	doRequest(t, server, http.MethodPost, "/api/items/"+id+"/confirm", "u-owner", nil)
	doRequest(t, server, http.MethodPost, "/api/items/"+id+"/confirm", "u-finder", nil)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/items/"+id+"/confirm", "u-owner", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_DeleteReport_NonOwnerRejected(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-finder", 0)
	id := createReport(t, server, "found", "u-finder", "wallet")

	resp, _ := doRequest(t, server, http.MethodDelete, "/api/items/"+id, "u-other", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, server, http.MethodDelete, "/api/items/"+id, "u-finder", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, server, http.MethodGet, "/api/items/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// REWARD ENDPOINT TESTS
// =============================================================================

func TestAPI_PurchaseReward(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-1", 50)
	rewardID := createReward(t, server, 2, 20)

	resp, body := doRequest(t, server, http.MethodPost, "/api/rewards/"+rewardID+"/purchase", "u-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, float64(30), body["balance"])
	code := body["code"].(string)
	assert.True(t, strings.HasPrefix(code, "finvouc-"), "code %q", code)

	resp, grants := doRequestList(t, server, "/api/users/u-1/grants", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, grants, 1)
	codes := grants[0]["codes"].([]any)
	require.Len(t, codes, 1)
	assert.Equal(t, code, codes[0])
}

func TestAPI_PurchaseReward_InsufficientBalance(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-1", 5)
	rewardID := createReward(t, server, 1, 20)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/rewards/"+rewardID+"/purchase", "u-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doRequest(t, server, http.MethodGet, "/api/users/u-1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), body["points"], "failed purchase charges nothing")
}

func TestAPI_PurchaseReward_Unknown(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-1", 50)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/rewards/rew-missing/purchase", "u-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_PurchaseReward_SellsOut(t *testing.T) {
	server := newTestServer(t)
	createUser(t, server, "u-1", 100)
	rewardID := createReward(t, server, 1, 10)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/rewards/"+rewardID+"/purchase", "u-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, server, http.MethodPost, "/api/rewards/"+rewardID+"/purchase", "u-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "second purchase finds no stock")
}

// =============================================================================
// DEMO ENDPOINT TESTS
// =============================================================================

func TestAPI_SeedAndReset(t *testing.T) {
	server := newTestServer(t)

	resp, body := doRequest(t, server, http.MethodPost, "/api/demo/seed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["users"])
	assert.Equal(t, float64(3), body["rewards"])
	assert.Equal(t, float64(4), body["reports"])

	resp, users := doRequestList(t, server, "/api/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, users, 3)

	resp, _ = doRequest(t, server, http.MethodPost, "/api/demo/reset", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, users = doRequestList(t, server, "/api/users", "")
	assert.Empty(t, users)
}
