package net

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"InkBoard/internal/state"
	"InkBoard/internal/store"
)

// SocketPath is where Server accepts websocket connections.
const SocketPath = "/ws"

const (
	opCreate   = "create"
	opUpdate   = "update"
	opFetch    = "fetch"
	opDownload = "download"
)

type request struct {
	ID    uint64                `json:"id"`
	Op    string                `json:"op"`
	DocID string                `json:"docId,omitempty"`
	Doc   *store.NewDocument    `json:"doc,omitempty"`
	Pages state.PageAnnotations `json:"pages,omitempty"`
	Path  string                `json:"path,omitempty"`
}

type response struct {
	ID       uint64        `json:"id"`
	DocID    string        `json:"docId,omitempty"`
	Record   *store.Record `json:"record,omitempty"`
	Data     []byte        `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	NotFound bool          `json:"notFound,omitempty"`
}

// Server exposes a store.Store to remote boards over websocket. Each
// connection is one peer; requests on a connection are handled in order.
type Server struct {
	store    store.Store
	upgrader websocket.Upgrader

	peers map[*websocket.Conn]string
	mu    sync.RWMutex
}

func NewServer(s store.Store) *Server {
	return &Server{
		store: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 64 << 10,
		},
		peers: make(map[*websocket.Conn]string),
	}
}

// Handler returns the HTTP handler serving SocketPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(SocketPath, s)
	return mux
}

// ListenAndServe serves on port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.closeAll()
	}()

	log.Printf("[NET] Store server listening on port %d", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve on port %d: %w", port, err)
	}
	return nil
}

// Peers returns the number of connected clients.
func (s *Server) Peers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

func (s *Server) add(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr := conn.RemoteAddr().String()
	s.peers[conn] = addr
	log.Printf("[NET] Client connected from %s", addr)
}

func (s *Server) remove(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr, ok := s.peers[conn]; ok {
		delete(s.peers, conn)
		log.Printf("[NET] Client %s disconnected", addr)
	}
}

func (s *Server) closeAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.peers {
		conn.Close()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[NET] Upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()
	s.add(conn)
	defer s.remove(conn)

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[NET] Read from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
		resp := s.handle(context.Background(), req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[NET] Write to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, req request) response {
	resp := response{ID: req.ID}
	var err error
	switch req.Op {
	case opCreate:
		if req.Doc == nil {
			err = errors.New("create: missing document")
			break
		}
		resp.DocID, err = s.store.Create(ctx, *req.Doc)
	case opUpdate:
		err = s.store.Update(ctx, req.DocID, req.Pages)
	case opFetch:
		var rec store.Record
		rec, err = s.store.Fetch(ctx, req.DocID)
		if err == nil {
			resp.Record = &rec
		}
	case opDownload:
		resp.Data, err = s.store.Download(ctx, req.Path)
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		resp.Error = err.Error()
		resp.NotFound = errors.Is(err, store.ErrNotFound)
	}
	return resp
}

// ErrClosed is returned for calls on a Client whose connection is gone.
var ErrClosed = errors.New("connection closed")

// Client is a store.Store backed by a remote Server.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan response
	err     error
	done    chan struct{}
}

var _ store.Store = (*Client)(nil)

// Dial connects to a Server. addr is either host:port or a full ws:// URL.
func Dial(ctx context.Context, addr string) (*Client, error) {
	url := addr
	if !hasScheme(addr) {
		url = "ws://" + addr + SocketPath
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	log.Printf("[NET] Connected to store at %s", url)

	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func hasScheme(addr string) bool {
	return strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://")
}

func (c *Client) readLoop() {
	var err error
	for {
		var resp response
		if err = c.conn.ReadJSON(&resp); err != nil {
			break
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}

	c.mu.Lock()
	c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	close(c.done)
}

// Close closes the connection; calls waiting for a reply fail with
// ErrClosed.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) call(ctx context.Context, req request) (response, error) {
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return response{}, err
	}
	c.nextID++
	req.ID = c.nextID
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return response{}, fmt.Errorf("send %s: %w", req.Op, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return response{}, c.closedErr()
		}
		if resp.Error != "" {
			if resp.NotFound {
				return resp, fmt.Errorf("%s: %w", resp.Error, store.ErrNotFound)
			}
			return resp, errors.New(resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(req.ID)
		return response{}, ctx.Err()
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

func (c *Client) Create(ctx context.Context, doc store.NewDocument) (string, error) {
	resp, err := c.call(ctx, request{Op: opCreate, Doc: &doc})
	return resp.DocID, err
}

func (c *Client) Update(ctx context.Context, id string, pages state.PageAnnotations) error {
	_, err := c.call(ctx, request{Op: opUpdate, DocID: id, Pages: pages})
	return err
}

func (c *Client) Fetch(ctx context.Context, id string) (store.Record, error) {
	resp, err := c.call(ctx, request{Op: opFetch, DocID: id})
	if err != nil {
		return store.Record{}, err
	}
	if resp.Record == nil {
		return store.Record{}, fmt.Errorf("fetch %s: empty reply", id)
	}
	return *resp.Record, nil
}

func (c *Client) Download(ctx context.Context, storagePath string) ([]byte, error) {
	resp, err := c.call(ctx, request{Op: opDownload, Path: storagePath})
	return resp.Data, err
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
