package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	chatmodel "SNProject/module/chat/model"
	usermodel "SNProject/module/user/model"
	"SNProject/tools/errs"
	security "SNProject/tools/security"
)

type stubConvs struct{}

func (stubConvs) IsParticipant(context.Context, string, string) (bool, error) { return false, nil }

type stubMsgs struct{}

func (stubMsgs) SaveMessage(context.Context, string, string, string) (*chatmodel.Message, error) {
	return nil, errs.ErrPersistence
}
func (stubMsgs) GetMessage(context.Context, string) (*chatmodel.Message, error) {
	return nil, errs.ErrRecordNotFound
}
func (stubMsgs) UpsertReaction(context.Context, string, string, string) error { return nil }
func (stubMsgs) RemoveReaction(context.Context, string, string) error         { return nil }
func (stubMsgs) ListReactions(context.Context, string) ([]chatmodel.Reaction, error) {
	return nil, nil
}
func (stubMsgs) UpsertDeletion(context.Context, string, string, bool) error { return nil }

type stubProfiles struct{}

func (stubProfiles) PublicProfile(context.Context, string) (*usermodel.PublicProfile, error) {
	return nil, errs.ErrRecordNotFound
}

func newWSTestServer(t *testing.T) (*Server, *httptest.Server, security.Options) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtOpts := security.DefaultOptions([]byte("ws-test-secret"))

	srv := NewServer(stubConvs{}, stubMsgs{}, stubProfiles{}, Options{JWT: jwtOpts})
	t.Cleanup(srv.Close)

	r := gin.New()
	r.GET("/ws", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return srv, ts, jwtOpts
}

func wsURL(ts *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func dial(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (FrameType, PresencePayload) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out struct {
		Type    FrameType       `json:"type"`
		Payload PresencePayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return out.Type, out.Payload
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	srv, ts, _ := newWSTestServer(t)

	for _, token := range []string{"", "garbage.token.here"} {
		resp, err := http.Get(strings.Replace(wsURL(ts, token), "ws", "http", 1))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token=%q status=%d, want 401", token, resp.StatusCode)
		}
	}
	// 拒绝发生在升级之前：不留任何状态
	if n := len(srv.Registry().Conns()); n != 0 {
		t.Fatalf("rejected handshakes must leave no connections, got %d", n)
	}
}

func TestPresenceBroadcastOnConnectAndDisconnect(t *testing.T) {
	_, ts, jwtOpts := newWSTestServer(t)

	tokenA, _, err := security.Generate(jwtOpts, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	tokenB, _, err := security.Generate(jwtOpts, "bob")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	connA := dial(t, ts, tokenA)
	connB := dial(t, ts, tokenB)

	// alice 看到 bob 上线
	ft, p := readFrame(t, connA)
	if ft != FrameUserOnline || p.UserID != "bob" {
		t.Fatalf("got %s/%+v, want user_online for bob", ft, p)
	}

	_ = connB.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = connB.Close()

	ft, p = readFrame(t, connA)
	if ft != FrameUserOffline || p.UserID != "bob" {
		t.Fatalf("got %s/%+v, want user_offline for bob", ft, p)
	}
}
