package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"fenrir/internal/common"
	"fenrir/internal/utils"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 5 * time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession is one connected TCP client, keyed by its remote address.
type ClientSession struct {
	conn net.Conn
}

// clientMessage links a parsed request to the client address it arrived
// from, so a response can be routed back after the engine call returns.
type clientMessage struct {
	clientAddress string
	message       Message
}

// Engine is the subset of engine.Engine the server needs; kept as an
// interface so server tests can supply a fake without a live book.
type Engine interface {
	AddOrder(order common.Order) error
	DeleteOrder(symbolID common.SymbolID, orderID uint64) error
	CancelOrder(symbolID common.SymbolID, orderID, newQuantity uint64) error
	ModifyOrder(symbolID common.SymbolID, orderID, newOrderID, newPrice uint64) error
	ExecuteOrder(symbolID common.SymbolID, orderID, quantity uint64) error
	ExecuteOrderAt(symbolID common.SymbolID, orderID, quantity, price uint64) error
	LogBook()
}

// Server terminates the wire protocol over TCP and dispatches parsed
// requests into an Engine, grounded on the teacher's internal/net/server.go
// (worker pool reading connections, a single session-handler goroutine
// serializing engine access, per-client sessions tracked by remote address).
type Server struct {
	address            string
	port               int
	engine             Engine
	pool               utils.WorkerPool
	cancel             context.CancelFunc
	clientSessions     map[string]ClientSession
	clientSessionsLock sync.Mutex
	clientMessages     chan clientMessage
}

// New constructs a server bound to address:port, dispatching into engine.
func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         engine,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]ClientSession),
		clientMessages: make(chan clientMessage, 1),
	}
}

// Shutdown cancels the server's run context.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is done, handing each off to the
// worker pool.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return t.Wait()
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("client connected")
			s.addClientSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// ReportExecution sends an execution report to ownerAddress's session.
func (s *Server) ReportExecution(ownerAddress string, symbolID common.SymbolID, order common.Order) error {
	return s.send(ownerAddress, executionReport(symbolID, order))
}

// ReportError sends an error report to clientAddress's session.
func (s *Server) ReportError(clientAddress string, err error) error {
	return s.send(clientAddress, errorReport(err))
}

func (s *Server) send(clientAddress string, report Report) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}
	if _, err := client.conn.Write(report.Serialize()); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.clientMessages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("clientAddress", msg.clientAddress).Msg("error handling message")
				s.ReportError(msg.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(cm clientMessage) error {
	switch cm.message.GetType() {
	case NewOrder:
		m, ok := cm.message.(*NewOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		m.Username = cm.clientAddress
		return s.engine.AddOrder(m.Order())
	case CancelOrder:
		m, ok := cm.message.(*CancelOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		return s.engine.CancelOrder(m.SymbolID, m.OrderID, m.NewQuantity)
	case ModifyOrder:
		m, ok := cm.message.(*ModifyOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		return s.engine.ModifyOrder(m.SymbolID, m.OrderID, m.NewOrderID, m.NewPrice)
	case ExecuteOrder:
		m, ok := cm.message.(*ExecuteOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		if m.HasPrice {
			return s.engine.ExecuteOrderAt(m.SymbolID, m.OrderID, m.Quantity, m.Price)
		}
		return s.engine.ExecuteOrder(m.SymbolID, m.OrderID, m.Quantity)
	case DeleteOrder:
		m, ok := cm.message.(*DeleteOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		return s.engine.DeleteOrder(m.SymbolID, m.OrderID)
	case LogBook:
		s.engine.LogBook()
		return nil
	default:
		return ErrInvalidMessageType
	}
}

// handleConnection reads one message off conn, forwards it to the session
// handler, and re-queues the connection for its next message. Any error
// returned here is treated as fatal to the worker pool, mirroring the
// teacher's contract for WorkerFunction.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	select {
	case <-t.Dying():
		return conn.Close()
	default:
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed to set deadline")
		return conn.Close()
	}

	buffer := make([]byte, maxRecvSize)
	n, err := conn.Read(buffer)
	if err != nil {
		log.Info().Err(err).Str("address", conn.RemoteAddr().String()).Msg("client connection closed")
		s.deleteClientSession(conn.RemoteAddr().String())
		return conn.Close()
	}

	message, err := ParseMessage(buffer[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
		s.ReportError(conn.RemoteAddr().String(), err)
		s.pool.AddTask(conn)
		return nil
	}

	s.clientMessages <- clientMessage{
		message:       message,
		clientAddress: conn.RemoteAddr().String(),
	}
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	s.clientSessions[conn.RemoteAddr().String()] = ClientSession{conn: conn}
}

func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()
	delete(s.clientSessions, address)
}
