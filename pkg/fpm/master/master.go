package master

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/loomphp/loom/internal/logging"
	"github.com/loomphp/loom/pkg/fastcgi"
	"github.com/loomphp/loom/pkg/fpm/handler"
	"github.com/loomphp/loom/pkg/fpm/pool"
	"github.com/loomphp/loom/runtime"
)

// MasterConfig is everything Master needs that isn't already folded
// into the pool.PoolConfig it drives.
type MasterConfig struct {
	Listen     string
	PIDFile    string
	ErrorLog   string
	LogLevel   string
	PoolConfig *pool.PoolConfig
}

// Master is the FPM master process: it owns the listening socket,
// signal handling, and the single worker pool that services every
// accepted FastCGI connection against one shared Engine.
type Master struct {
	config       *MasterConfig
	engine       *runtime.Engine
	load         handler.ChunkLoader
	log          *logging.Logger
	pool         *pool.WorkerPool
	listener     net.Listener
	sigChan      chan os.Signal
	stopChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewMaster builds a master bound to engine (already loaded with its
// extensions) and load, the Chunk-resolution strategy every worker's
// RequestHandler uses.
func NewMaster(config *MasterConfig, engine *runtime.Engine, load handler.ChunkLoader) *Master {
	return &Master{
		config:   config,
		engine:   engine,
		load:     load,
		log:      logging.New(os.Stderr, "master", logging.ParseLevel(config.LogLevel)),
		sigChan:  make(chan os.Signal, 1),
		stopChan: make(chan struct{}),
	}
}

func (m *Master) Start() error {
	m.log.Noticef("starting master process")

	listener, err := net.Listen("tcp", m.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", m.config.Listen, err)
	}
	m.listener = listener
	m.log.Noticef("listening on %s", m.config.Listen)

	if m.config.PIDFile != "" {
		if err := m.writePIDFile(); err != nil {
			return fmt.Errorf("failed to write PID file: %v", err)
		}
	}

	poolLog := logging.New(os.Stderr, "pool:"+m.config.PoolConfig.Name, logging.ParseLevel(m.config.LogLevel))
	m.pool = pool.NewWorkerPool(m.config.PoolConfig, m.engine, m.load, poolLog)
	if err := m.pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %v", err)
	}

	signal.Notify(m.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGQUIT)

	m.wg.Add(1)
	go m.handleSignals()

	m.wg.Add(1)
	go m.acceptConnections()

	return nil
}

func (m *Master) acceptConnections() {
	defer m.wg.Done()

	for {
		conn, err := m.listener.Accept()
		if err != nil {
			select {
			case <-m.stopChan:
				return
			default:
				m.log.Warningf("accept error: %v", err)
				continue
			}
		}

		go m.handleConnection(conn)
	}
}

func (m *Master) handleConnection(conn net.Conn) {
	defer conn.Close()

	proto := fastcgi.NewProtocol(conn)

	for {
		req, err := proto.ReadRequest()
		if err != nil {
			return
		}

		if err := m.pool.HandleRequest(proto, req); err != nil {
			m.log.Errorf("error handling request: %v", err)
			proto.SendResponse(req.ID, nil, []byte(err.Error()), 1)
		}
	}
}

func (m *Master) handleSignals() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopChan:
			return
		case sig := <-m.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT:
				m.log.Noticef("received %v, initiating graceful shutdown", sig)
				m.GracefulShutdown()
				return

			case syscall.SIGUSR1:
				m.log.Noticef("received SIGUSR1, reopening log files")
				m.reopenLogs()

			case syscall.SIGUSR2:
				m.log.Noticef("received SIGUSR2, reloading configuration")
				m.reloadConfig()
			}
		}
	}
}

func (m *Master) GracefulShutdown() {
	m.shutdownOnce.Do(func() {
		m.log.Noticef("graceful shutdown initiated")

		close(m.stopChan)

		if m.listener != nil {
			m.listener.Close()
		}

		if m.pool != nil {
			m.pool.Stop()
		}

		m.engine.Shutdown()

		if m.config.PIDFile != "" {
			os.Remove(m.config.PIDFile)
		}
	})
}

func (m *Master) Wait() {
	m.wg.Wait()
	m.log.Noticef("master process shutdown complete")
}

func (m *Master) reopenLogs() {
	m.log.Noticef("log rotation not yet implemented")
}

func (m *Master) reloadConfig() {
	m.log.Noticef("configuration reload not yet implemented")
}

func (m *Master) writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(m.config.PIDFile, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

func (m *Master) GetStats() *pool.PoolStats {
	if m.pool == nil {
		return nil
	}
	return m.pool.GetStats()
}
