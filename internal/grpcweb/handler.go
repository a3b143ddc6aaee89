// Package grpcweb lets browsers reach the gRPC server over HTTP/1.1.
// Only JSON messages are accepted, in binary or base64 text framing.
package grpcweb

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	binaryType = "application/grpc-web+json"
	textType   = "application/grpc-web-text+json"
	maxMessage = 1 << 20

	flagData    = 0x00
	flagTrailer = 0x80
)

// forwarded request headers, lowercased as gRPC metadata keys
var forwarded = []string{"authorization", "x-request-id"}

// Bridge forwards grpc-web calls to a gRPC server over a client connection.
type Bridge struct {
	conn    *grpc.ClientConn
	log     *slog.Logger
	origins []string
}

type Option func(*Bridge)

// WithOrigins restricts CORS to the listed origins. The default reflects any origin.
func WithOrigins(origins ...string) Option {
	return func(b *Bridge) { b.origins = origins }
}

// New creates a lazy connection to the gRPC server at addr.
func New(addr string, log *slog.Logger, opts ...Option) (*Bridge, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	b := &Bridge{conn: conn, log: log}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bridge) Close() error { return b.conn.Close() }

func (b *Bridge) Handler() http.Handler { return http.HandlerFunc(b.serve) }

func (b *Bridge) serve(w http.ResponseWriter, r *http.Request) {
	if !b.cors(w, r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, ok := mode(r.Header.Get("Content-Type"))
	if !ok {
		http.Error(w, "expected grpc-web with json messages", http.StatusUnsupportedMediaType)
		return
	}
	out := &reply{w: w, text: text}

	msg, err := readMessage(r.Body, text)
	if err != nil {
		out.status(status.Convert(err))
		return
	}

	md := metadata.MD{}
	for _, k := range forwarded {
		if v := r.Header.Values(k); len(v) > 0 {
			md.Set(k, v...)
		}
	}
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	var resp passthrough
	if err := b.conn.Invoke(ctx, r.URL.Path, &passthrough{data: msg}, &resp, grpc.ForceCodec(passthroughCodec{})); err != nil {
		st := status.Convert(err)
		b.log.DebugContext(ctx, "grpc-web call failed", "method", r.URL.Path, "code", st.Code().String())
		out.status(st)
		return
	}
	out.message(resp.data)
}

// cors sets the CORS headers and reports whether the origin is allowed.
func (b *Bridge) cors(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin != "" && len(b.origins) > 0 && !slices.Contains(b.origins, origin) {
		return false
	}
	if origin == "" {
		origin = "*"
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Grpc-Web, X-User-Agent, X-Request-Id")
	h.Set("Access-Control-Expose-Headers", "Grpc-Status, Grpc-Message")
	h.Set("Access-Control-Max-Age", "86400")
	h.Add("Vary", "Origin")
	return true
}

// mode reports whether ct is the base64 text variant. Bare grpc-web
// content types are taken to carry JSON.
func mode(ct string) (text, ok bool) {
	ct, _, _ = strings.Cut(ct, ";")
	switch strings.TrimSpace(ct) {
	case binaryType, "application/grpc-web":
		return false, true
	case textType, "application/grpc-web-text":
		return true, true
	}
	return false, false
}

// readMessage returns the payload of the single data frame in body.
func readMessage(body io.Reader, text bool) ([]byte, error) {
	if text {
		body = base64.NewDecoder(base64.StdEncoding, body)
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxMessage+6))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "unreadable body")
	}
	if len(raw) < 5 {
		return nil, status.Error(codes.InvalidArgument, "body too short")
	}
	if raw[0] != flagData {
		return nil, status.Error(codes.Unimplemented, "compressed frames are not supported")
	}
	n := binary.BigEndian.Uint32(raw[1:5])
	if n > maxMessage {
		return nil, status.Error(codes.ResourceExhausted, "message too large")
	}
	if int(n) != len(raw)-5 {
		return nil, status.Error(codes.InvalidArgument, "incomplete frame")
	}
	return raw[5:], nil
}

// passthrough carries JSON that is already encoded.
type passthrough struct{ data []byte }

// passthroughCodec is named "json" so the server decodes the bytes with its JSON codec.
type passthroughCodec struct{}

func (passthroughCodec) Marshal(v any) ([]byte, error) { return v.(*passthrough).data, nil }

func (passthroughCodec) Unmarshal(data []byte, v any) error {
	v.(*passthrough).data = append([]byte(nil), data...)
	return nil
}

func (passthroughCodec) Name() string { return "json" }

// reply writes grpc-web frames in the encoding the caller used.
type reply struct {
	w    http.ResponseWriter
	text bool
}

func (o *reply) message(data []byte) {
	o.write(append(frame(flagData, data), frame(flagTrailer, []byte("grpc-status:0\r\n"))...))
}

func (o *reply) status(st *status.Status) {
	trailer := fmt.Sprintf("grpc-status:%d\r\ngrpc-message:%s\r\n", st.Code(), url.PathEscape(st.Message()))
	o.write(frame(flagTrailer, []byte(trailer)))
}

func (o *reply) write(frames []byte) {
	ct := binaryType
	if o.text {
		ct = textType
		frames = []byte(base64.StdEncoding.EncodeToString(frames))
	}
	o.w.Header().Set("Content-Type", ct)
	o.w.WriteHeader(http.StatusOK)
	o.w.Write(frames)
}

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}
