package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mharrison-oss/sessiond/internal/engine/fakeengine"
	"github.com/mharrison-oss/sessiond/internal/httpapi"
	"github.com/mharrison-oss/sessiond/internal/ids"
	"github.com/mharrison-oss/sessiond/internal/ipc"
	"github.com/mharrison-oss/sessiond/internal/procloop"
	"github.com/mharrison-oss/sessiond/internal/registry"
	"github.com/mharrison-oss/sessiond/internal/session"
)

// newServer wires a fresh root worker + API, exactly as cmd/sessiond does,
// with a fast fake engine so tests don't depend on real network access.
func newServer(t *testing.T) (http.Handler, func()) {
	t.Helper()

	ipcReg := ipc.NewRegistry()
	sessions := registry.New()
	alloc := &ids.SessionAllocator{}

	eng := fakeengine.New()
	eng.ChunkDelay = time.Millisecond

	root, rootCh, err := session.New(ipcReg, alloc, eng, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	loop := procloop.New(rootCh, ipcReg, nil)
	go loop.Run(ctx, root)

	api := httpapi.New(ipcReg, sessions, nil)
	return api.Routes(), cancel
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChats_StartsEmpty(t *testing.T) {
	h, cancel := newServer(t)
	defer cancel()

	out := doJSON(t, h, "GET", "/chats", "")
	assert.Equal(t, []any{}, out["ids"])
}

func TestInit_ForksChildAndInitializes(t *testing.T) {
	h, cancel := newServer(t)
	defer cancel()

	out := doJSON(t, h, "POST", "/init", "Hello")
	id, ok := out["id"]
	require.True(t, ok, "expected id field, got %v", out)
	require.NotZero(t, id)

	chats := doJSON(t, h, "GET", "/chats", "")
	ids := chats["ids"].([]any)
	require.Len(t, ids, 1)
	assert.EqualValues(t, id, ids[0])
}

func TestFork_ThenDelete(t *testing.T) {
	h, cancel := newServer(t)
	defer cancel()

	initOut := doJSON(t, h, "POST", "/init", "Hello")
	n := int64(initOut["id"].(float64))

	forkOut := doJSON(t, h, "POST", "/fork/"+strconv.FormatInt(n, 10), "")
	m := int64(forkOut["id"].(float64))
	require.NotEqual(t, n, m)

	chats := doJSON(t, h, "GET", "/chats", "")
	assert.Len(t, chats["ids"].([]any), 2)

	delOut := doJSON(t, h, "POST", "/delete/"+strconv.FormatInt(n, 10), "")
	assert.EqualValues(t, n, delOut["deleted"])

	sendOut := doJSON(t, h, "POST", "/send/"+strconv.FormatInt(n, 10), "x")
	assert.Equal(t, "Chat not found", sendOut["error"])

	chats = doJSON(t, h, "GET", "/chats", "")
	assert.Len(t, chats["ids"].([]any), 1)
}

func TestInteract_ReturnsConcatenatedOutput(t *testing.T) {
	h, cancel := newServer(t)
	defer cancel()

	initOut := doJSON(t, h, "POST", "/init", "Hello")
	n := int64(initOut["id"].(float64))

	// allow init's async Done to clear busy before interact.
	time.Sleep(50 * time.Millisecond)

	out := doJSON(t, h, "POST", "/interact/"+strconv.FormatInt(n, 10), "One word answer:")
	reply, ok := out["reply"]
	require.True(t, ok, "expected reply field, got %v", out)
	assert.NotEmpty(t, reply)

	update := doJSON(t, h, "GET", "/update/"+strconv.FormatInt(n, 10), "")
	assert.Equal(t, "", update["update"])
	assert.Equal(t, true, update["finished"])
}

func TestSend_BusyThenPendingOutput(t *testing.T) {
	h, cancel := newServer(t)
	defer cancel()

	initOut := doJSON(t, h, "POST", "/init", "Hello")
	n := int64(initOut["id"].(float64))
	time.Sleep(50 * time.Millisecond)

	first := doJSON(t, h, "POST", "/send/"+strconv.FormatInt(n, 10), "Say hi")
	assert.EqualValues(t, n, first["sent"])

	second := doJSON(t, h, "POST", "/send/"+strconv.FormatInt(n, 10), "x")
	assert.Contains(t, second["error"], "Error:")
}

func TestFork_UnknownID(t *testing.T) {
	h, cancel := newServer(t)
	defer cancel()

	out := doJSON(t, h, "POST", "/fork/9999", "")
	assert.Equal(t, "Chat not found", out["error"])
}
