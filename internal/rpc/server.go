package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/remiges-tech/phonecomplete"
)

// defaultRequestTimeout bounds one request when the server has no timeout set.
const defaultRequestTimeout = 5 * time.Second

// maxMessageSize is the longest accepted request line.
const maxMessageSize = 64 * 1024

// Backend is the completion service the server exposes.
type Backend interface {
	Search(ctx context.Context, query string) ([]phonecomplete.Match, error)
	Healthcheck() phonecomplete.State
	Message() string
	Rebuild(ctx context.Context) *phonecomplete.Build
}

// Server listens on a socket and serves completion requests.
type Server struct {
	backend Backend
	network string
	addr    string
	log     logrus.FieldLogger

	// RequestTimeout bounds each request. Zero means five seconds.
	RequestTimeout time.Duration

	listener net.Listener
	started  time.Time
	ctx      context.Context
	cancel   context.CancelFunc

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a server for backend on the given network ("unix" or
// "tcp") and address.
func NewServer(backend Backend, network, addr string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		backend: backend,
		network: network,
		addr:    addr,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start begins listening. On a unix socket it handles stale socket files by
// attempting a connection first; if the connection fails, the stale file is
// removed before binding.
func (s *Server) Start() error {
	if s.network == "unix" {
		if _, err := os.Stat(s.addr); err == nil {
			conn, err := net.DialTimeout("unix", s.addr, 500*time.Millisecond)
			if err == nil {
				conn.Close()
				return fmt.Errorf("server already running at %s", s.addr)
			}
			// Stale socket
			os.Remove(s.addr)
		}
	}

	ln, err := net.Listen(s.network, s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.WithFields(logrus.Fields{"network": s.network, "addr": s.Addr()}).Info("rpc server listening")
	return nil
}

// Stop closes the listener, waits for open connections to finish and removes
// the socket file. Safe to call multiple times.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		if s.network == "unix" {
			os.Remove(s.addr)
		}
	})
	return nil
}

// Addr returns the address the server is listening on, which differs from
// the configured one for tcp port 0.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.WithError(err).Warn("accept failed")
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// unblock the scanner on Stop
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-connDone:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON", Code: CodeBadRequest})
			continue
		}

		s.writeResponse(conn, s.handleRequest(req))
	}
}

func (s *Server) handleRequest(req Request) Response {
	timeout := s.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	switch req.Method {
	case MethodGetCompletion:
		return s.handleCompletion(ctx, req)
	case MethodHealthcheck:
		return Response{ID: req.ID, Result: HealthResult{
			Status: s.backend.Healthcheck().String(),
			Uptime: time.Since(s.started).Truncate(time.Second).String(),
		}}
	case MethodMessage:
		return Response{ID: req.ID, Result: MessageResult{Message: s.backend.Message()}}
	case MethodRebuild:
		return s.handleRebuild(req)
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method), Code: CodeUnknownMethod}
	}
}

func (s *Server) handleCompletion(ctx context.Context, req Request) Response {
	var params CompletionParams
	if err := remarshal(req.Params, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid get_completion params", Code: CodeBadRequest}
	}

	start := time.Now()
	matches, err := s.backend.Search(ctx, params.Search)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: CompletionResult{
		Matches: matches,
		Count:   len(matches),
		Elapsed: time.Since(start).String(),
	}}
}

func (s *Server) handleRebuild(req Request) Response {
	// the build outlives the request
	b := s.backend.Rebuild(s.ctx)
	if err := b.Err(); err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: RebuildResult{BuildID: b.ID}}
}

// errorResponse maps service errors to protocol codes.
func errorResponse(id string, err error) Response {
	code := CodeInternal
	switch {
	case errors.Is(err, phonecomplete.ErrNotReady):
		code = CodeNotReady
	case errors.Is(err, phonecomplete.ErrQueryTooLong):
		code = CodeQueryTooLong
	case errors.Is(err, phonecomplete.ErrBuildInProgress):
		code = CodeBuildRunning
	case errors.Is(err, phonecomplete.ErrClosed):
		code = CodeClosed
	}
	return Response{ID: id, Error: err.Error(), Code: code}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.WithError(err).Error("failed to encode response")
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.log.WithError(err).Debug("failed to write response")
	}
}
