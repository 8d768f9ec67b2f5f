package wire

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

// LoopbackTransport is a single-process, single-peer websocket transport:
// it listens on 127.0.0.1, accepts exactly one connection, and exposes
// Send/Receive of Frames over it. It exists so the peer wire-message
// codec above has a real transport to round-trip over in tests; dialing,
// discovery, rate-limiting and multi-peer fan-out are out of scope
// (spec.md §6).
type LoopbackTransport struct {
	listener net.Listener
	server   *http.Server
	accepted chan *websocket.Conn
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// NewLoopbackTransport starts listening on 127.0.0.1:0 and returns once
// ready to accept a single inbound connection.
func NewLoopbackTransport() (*LoopbackTransport, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("wire: listen: %w", err)
	}
	lt := &LoopbackTransport{listener: ln, accepted: make(chan *websocket.Conn, 1)}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		lt.accepted <- conn
	})
	lt.server = &http.Server{Handler: mux}
	go lt.server.Serve(ln)
	return lt, nil
}

// Addr is the "ws://host:port/" URL a peer should dial.
func (lt *LoopbackTransport) Addr() string {
	return fmt.Sprintf("ws://%s/", lt.listener.Addr().String())
}

// Accept blocks until the single expected peer connects, returning a
// PeerConn wrapping the resulting websocket connection.
func (lt *LoopbackTransport) Accept(ctx context.Context) (*PeerConn, error) {
	select {
	case conn := <-lt.accepted:
		return &PeerConn{conn: conn}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the listener. It does not close any already-accepted
// PeerConn.
func (lt *LoopbackTransport) Close() error {
	return lt.server.Close()
}

// Dial connects to a LoopbackTransport's Addr as the peer side.
func Dial(addr string) (*PeerConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("wire: dial: %w", err)
	}
	return &PeerConn{conn: conn}, nil
}

// PeerConn sends and receives length-prefixed, type-tagged Frames over a
// single websocket connection, one Frame per binary message.
type PeerConn struct {
	conn *websocket.Conn
}

// Send writes f as one binary websocket message.
func (p *PeerConn) Send(f Frame) error {
	header := make([]byte, 5)
	header[4] = byte(f.Type)
	putUint32(header[:4], uint32(len(f.Payload)))
	msg := append(header, f.Payload...)
	return p.conn.WriteMessage(websocket.BinaryMessage, msg)
}

// Receive reads the next binary websocket message and decodes it as a
// Frame.
func (p *PeerConn) Receive() (Frame, error) {
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		return Frame{}, fmt.Errorf("wire: receive: %w", err)
	}
	if len(data) < 5 {
		return Frame{}, fmt.Errorf("wire: message shorter than frame header")
	}
	n := getUint32(data[:4])
	typ := MessageType(data[4])
	if uint32(len(data)-5) != n {
		return Frame{}, fmt.Errorf("wire: frame length mismatch: header says %d, got %d", n, len(data)-5)
	}
	return Frame{Type: typ, Payload: data[5:]}, nil
}

// Close closes the underlying websocket connection.
func (p *PeerConn) Close() error { return p.conn.Close() }

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
