package grpcweb

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"

	"mentor-meet-api/internal/api"
	"mentor-meet-api/internal/auth"
	"mentor-meet-api/internal/call"
	"mentor-meet-api/internal/directory"
	"mentor-meet-api/internal/handler"
	"mentor-meet-api/internal/logger"
	"mentor-meet-api/internal/middleware"
	"mentor-meet-api/internal/model"
	"mentor-meet-api/internal/scheduler"
	"mentor-meet-api/internal/store/sqlite"
)

const secret = "test-secret"

func startBackend(t *testing.T) string {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "mentor.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	for _, u := range []model.User{
		{ID: "mentee", Role: model.RoleMentee},
		{ID: "mentor", Role: model.RoleMentor},
	} {
		if err := st.UpsertUser(ctx, &u); err != nil {
			t.Fatal(err)
		}
	}
	dir := directory.New(st)
	sched := scheduler.New(dir, call.NewMemory(), st,
		scheduler.WithLogger(logger.Discard()), scheduler.WithLocation(time.UTC))

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.Auth(secret, "")))
	handler.Register(srv, handler.New(dir, st, sched, logger.Discard()))
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func startBridge(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	b, err := New(startBackend(t), logger.Discard(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, method string, msg any, token string) (data []byte, trailer string) {
	t.Helper()
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodPost, srv.URL+method, bytes.NewReader(frame(flagData, payload)))
	req.Header.Set("Content-Type", "application/grpc-web+json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("http status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != binaryType {
		t.Errorf("content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)

	return splitFrames(body)
}

func splitFrames(body []byte) (data []byte, trailer string) {
	for len(body) >= 5 {
		n := binary.BigEndian.Uint32(body[1:5])
		chunk := body[5 : 5+n]
		if body[0]&0x80 != 0 {
			trailer = string(chunk)
		} else {
			data = chunk
		}
		body = body[5+n:]
	}
	return data, trailer
}

func TestForwardOpenMethod(t *testing.T) {
	srv := startBridge(t)
	data, trailer := post(t, srv, api.MethodListTimeSlots, api.ListTimeSlotsRequest{}, "")
	if !strings.Contains(trailer, "grpc-status:0") {
		t.Fatalf("trailer = %q", trailer)
	}
	var resp api.ListTimeSlotsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, data)
	}
	if resp.Default != "09:00" {
		t.Errorf("default = %q", resp.Default)
	}
}

func TestForwardScheduleWithToken(t *testing.T) {
	srv := startBridge(t)
	tok, err := auth.MakeToken("mentor", secret, "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	data, trailer := post(t, srv, api.MethodScheduleSession, api.ScheduleSessionRequest{
		Title:          "Algo Review",
		Date:           "2025-03-10",
		Time:           "09:00",
		CandidateID:    "mentee",
		InterviewerIDs: []string{"mentor"},
	}, tok)
	if !strings.Contains(trailer, "grpc-status:0") {
		t.Fatalf("trailer = %q", trailer)
	}
	var resp api.ScheduleSessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Session.CandidateID != "mentee" || resp.Session.Status != "upcoming" {
		t.Errorf("session = %+v", resp.Session)
	}
}

func TestForwardErrorStatus(t *testing.T) {
	srv := startBridge(t)
	data, trailer := post(t, srv, api.MethodListSessions, api.ListSessionsRequest{}, "")
	if data != nil {
		t.Errorf("unexpected data frame %q", data)
	}
	if !strings.Contains(trailer, "grpc-status:16") {
		t.Errorf("trailer = %q, want Unauthenticated", trailer)
	}
}

func TestRejectsNonGRPCWeb(t *testing.T) {
	srv := startBridge(t)

	resp, err := http.Get(srv.URL + api.MethodListSessions)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+api.MethodListSessions, "application/grpc-web+proto", bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("proto status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+api.MethodListSessions, nil)
	req.Header.Set("Origin", "https://app.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
}

func TestOriginAllowlist(t *testing.T) {
	srv := startBridge(t, WithOrigins("https://app.example"))

	for origin, want := range map[string]int{
		"https://app.example":  http.StatusNoContent,
		"https://evil.example": http.StatusForbidden,
	} {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+api.MethodListSessions, nil)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s: status %d, want %d", origin, resp.StatusCode, want)
		}
	}
}

func TestTextMode(t *testing.T) {
	srv := startBridge(t)
	payload, _ := json.Marshal(api.ListTimeSlotsRequest{})
	body := base64.StdEncoding.EncodeToString(frame(flagData, payload))

	resp, err := http.Post(srv.URL+api.MethodListTimeSlots, "application/grpc-web-text+json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != textType {
		t.Errorf("content type %q", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	decoded, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		t.Fatalf("response is not base64: %v", err)
	}
	data, trailer := splitFrames(decoded)
	if !strings.Contains(trailer, "grpc-status:0") {
		t.Fatalf("trailer = %q", trailer)
	}
	var slots api.ListTimeSlotsResponse
	if err := json.Unmarshal(data, &slots); err != nil {
		t.Fatal(err)
	}
	if len(slots.Times) != 17 {
		t.Errorf("got %d slots", len(slots.Times))
	}
}

func TestMode(t *testing.T) {
	tests := []struct {
		ct       string
		text, ok bool
	}{
		{"application/grpc-web+json", false, true},
		{"application/grpc-web", false, true},
		{"application/grpc-web-text", true, true},
		{"application/grpc-web-text+json; charset=utf-8", true, true},
		{"application/grpc-web+proto", false, false},
		{"application/json", false, false},
	}
	for _, tt := range tests {
		text, ok := mode(tt.ct)
		if text != tt.text || ok != tt.ok {
			t.Errorf("mode(%q) = %v, %v", tt.ct, text, ok)
		}
	}
}

func TestShortAndTruncatedFrames(t *testing.T) {
	srv := startBridge(t)
	for name, body := range map[string][]byte{
		"short":     {0, 0},
		"truncated": {0, 0, 0, 0, 9, '{', '}'},
		"trailing":  {0, 0, 0, 0, 2, '{', '}', 0},
	} {
		resp, err := http.Post(srv.URL+api.MethodListTimeSlots, "application/grpc-web+json", bytes.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !bytes.Contains(b, []byte("grpc-status:3")) {
			t.Errorf("%s: body %q, want InvalidArgument trailer", name, b)
		}
	}
}
