// Package transport hosts the one concrete framed channel the core needs
// (spec §1 leaves the transport external): newline-delimited JSON over TCP,
// using internal/protocol's Reader/Writer and internal/router's Dispatch as
// its per-connection request loop, in the spirit of the teacher's
// goroutine-per-connection serve commands (cmd/thv-registry-api/app/serve.go).
package transport

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/mcp-collab/collabd/internal/logging"
	"github.com/mcp-collab/collabd/internal/mcpserver"
	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/protocol"
)

// endpoint adapts a per-connection protocol.Writer to connection.Endpoint so
// the Notification Dispatcher can reach this client without knowing the
// transport is TCP.
type endpoint struct {
	writer *protocol.Writer
}

func (e *endpoint) Send(env any) error {
	envelope, ok := env.(*protocol.Envelope)
	if !ok {
		return errors.New("transport: Send given a non-Envelope value")
	}
	return e.writer.WriteEnvelope(envelope)
}

// Listener owns the TCP accept loop for one *mcpserver.Server.
type Listener struct {
	addr string
	srv  *mcpserver.Server
	ln   net.Listener
}

// NewListener binds addr without yet accepting connections.
func NewListener(addr string, srv *mcpserver.Server) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{addr: addr, srv: srv, ln: ln}, nil
}

// Addr returns the bound address (useful when addr used port 0).
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve accepts connections until ctx is cancelled or the listener is closed.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go l.handleConn(ctx, conn)
	}
}

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := protocol.NewReader(conn)
	writer := protocol.NewWriter(conn)
	ep := &endpoint{writer: writer}

	var clientID string
	defer func() {
		if clientID != "" {
			l.srv.HandleAbruptDisconnect(clientID)
		}
	}()

	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			var decodeErr *protocol.DecodeError
			if errors.As(err, &decodeErr) {
				resp := l.srv.Router.RejectDecodeError("", protoerr.Code(decodeErr.Code))
				_ = writer.WriteEnvelope(resp)
				continue
			}
			if !errors.Is(err, io.EOF) {
				logging.Warnf("transport: connection %s read error: %v", conn.RemoteAddr(), err)
			}
			return
		}

		env := frame.Envelope
		if env.Type == protocol.TypeConnection {
			var req struct {
				ClientID string `json:"clientId"`
			}
			protocol.DecodePayload(env.Payload, &req)
			clientID = req.ClientID
		}

		resp := l.srv.Router.Dispatch(ctx, clientID, env)
		if clientID != "" {
			l.srv.Connections.SetEndpoint(clientID, ep)
		}
		if err := writer.WriteEnvelope(resp); err != nil {
			logging.Warnf("transport: connection %s write error: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
