package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/shared"
)

// loopbackHost is the literal RFC 8252 requires. Spotify's redirect policy
// allows any port on the loopback IP literal but not on "localhost" or
// arbitrary hosts, so neither the hostname nor a wildcard address may be
// bound here.
const loopbackHost = "127.0.0.1"

// CallbackServer is an ephemeral HTTP listener for OAuth redirects, used when
// no fixed redirect URI is configured.
//
// The port is never reserved in advance: the OS assigns it at bind time and
// it is read back from the bound socket. One instance exists at a time; it is
// created lazily on the first login attempt, reused across attempts while the
// process lives, and explicitly stoppable.
type CallbackServer struct {
	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	delegate   http.Handler
	logger     *log.Logger
}

// NewCallbackServer creates a stopped CallbackServer.
func NewCallbackServer(logger *log.Logger) *CallbackServer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CallbackServer{logger: logger}
}

// Start binds the loopback listener if it is not already running and routes
// /callback requests to handler. Safe to call once per login attempt: a
// running listener is reused and only the delegate handler is swapped.
func (c *CallbackServer) Start(handler http.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.delegate = handler

	if c.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", loopbackHost+":0")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCallbackBind, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		delegate := c.delegate
		c.mu.Unlock()

		if delegate == nil {
			http.Error(w, "No authorization attempt in progress", http.StatusNotFound)
			return
		}
		delegate.ServeHTTP(w, r)
	})

	c.listener = listener
	c.httpServer = &http.Server{Handler: mux}

	srv := c.httpServer
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			c.logger.Error("callback server failed", "error", err)
		}
	}()

	c.logger.Info("callback listener started", "addr", listener.Addr().String())

	return nil
}

// Running reports whether the listener is bound.
func (c *CallbackServer) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener != nil
}

// Port returns the OS-assigned port, or 0 when the server is stopped.
func (c *CallbackServer) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		return 0
	}
	return c.listener.Addr().(*net.TCPAddr).Port
}

// Addr returns the bound address, or empty when the server is stopped.
func (c *CallbackServer) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

// RedirectURI returns the redirect URI guests of the authorization server
// will be sent back to. Must only be called after Start.
func (c *CallbackServer) RedirectURI() string {
	port := c.Port()
	if port == 0 {
		return ""
	}
	return fmt.Sprintf("http://%s:%d/callback", loopbackHost, port)
}

// Stop shuts the listener down. The next Start binds a fresh port.
func (c *CallbackServer) Stop(ctx context.Context) error {
	c.mu.Lock()
	httpServer := c.httpServer
	c.listener = nil
	c.httpServer = nil
	c.delegate = nil
	c.mu.Unlock()

	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}
