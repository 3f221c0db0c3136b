package efemlink

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/logger"
)

// ConnectionConfig represents the configuration parameters for an EFEM link.
type ConnectionConfig struct {
	mu sync.RWMutex

	// host specifies the host of the EFEM controller.
	host string

	// port specifies the TCP port number of the EFEM controller.
	port int

	// connectTimeout defines the timeout for establishing the TCP connection.
	// Defaults to 5 seconds.
	connectTimeout time.Duration

	// commandTimeout defines the reply deadline for motion and transfer
	// commands (Load, SmartGet, SmartPut, Alignment, Home, ...).
	// Defaults to 25 seconds.
	commandTimeout time.Duration

	// statusTimeout defines the reply deadline for pure status queries
	// (GetStatus, GetMapResult, CheckWaferPresence, ...).
	// Defaults to 5 seconds.
	statusTimeout time.Duration

	// confirmationTimeout defines how long a run waits for the operator to
	// confirm data read from the equipment. Defaults to 60 seconds.
	confirmationTimeout time.Duration

	// settleDelay defines the pause between scripted steps after a
	// successful response, giving the equipment time to settle.
	// Defaults to 800 milliseconds.
	settleDelay time.Duration

	// writeTimeout defines the deadline for one socket write and for
	// enqueueing a frame into the sender mailbox. Defaults to 5 seconds.
	writeTimeout time.Duration

	// closeConnTimeout defines the timeout for closing the whole link.
	// Defaults to 3 seconds.
	closeConnTimeout time.Duration

	// statusPollInterval defines how often the link issues a background
	// GetStatus query while idle. Zero (the default) disables polling.
	statusPollInterval time.Duration

	// senderQueueSize defines the size of the sender mailbox, which buffers
	// outbound frames before the sender task writes them. Defaults to 10.
	senderQueueSize int

	// eventQueueSize defines the size of the event mailbox between the
	// receive task and the Notifier. Defaults to 16.
	eventQueueSize int

	// timeoutClasses holds per-command reply-deadline overrides applied on
	// top of the command/status defaults.
	timeoutClasses map[string]time.Duration

	// logger provides a logger instance for link events and errors.
	logger logger.Logger

	// notifier receives events, status changes and log lines.
	notifier efem.Notifier
}

// NewConnectionConfig creates a new link configuration with the given host,
// port number, and optional functional options.
//
// It initializes a ConnectionConfig with default values and then applies the
// provided options. Returns the initialized ConnectionConfig and an error if
// any option is invalid.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		connectTimeout:      5 * time.Second,
		commandTimeout:      25 * time.Second,
		statusTimeout:       5 * time.Second,
		confirmationTimeout: 60 * time.Second,
		settleDelay:         800 * time.Millisecond,
		writeTimeout:        5 * time.Second,
		closeConnTimeout:    3 * time.Second,
		senderQueueSize:     10,
		eventQueueSize:      16,
		timeoutClasses:      make(map[string]time.Duration),
		logger:              logger.GetLogger(),
		notifier:            efem.NopNotifier{},
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) Host() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.host
}

func (cfg *ConnectionConfig) Port() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.port
}

func (cfg *ConnectionConfig) ConnectTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.connectTimeout
}

func (cfg *ConnectionConfig) CommandTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.commandTimeout
}

func (cfg *ConnectionConfig) StatusTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.statusTimeout
}

func (cfg *ConnectionConfig) ConfirmationTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.confirmationTimeout
}

func (cfg *ConnectionConfig) SettleDelay() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.settleDelay
}

func (cfg *ConnectionConfig) StatusPollInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.statusPollInterval
}

// ConnOption represents a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error { return c.applyFunc(cfg) }

func newConnOptFunc(name string, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

// withHost sets and validates the host of the EFEM controller.
func withHost(host string) ConnOption {
	return newConnOptFunc("withHost", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}

		// Check if it's a valid IP address
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		// If not an IP, check if it's a valid domain name
		host = strings.TrimPrefix(host, ".")
		host = strings.TrimSuffix(host, ".")
		if _, err := net.LookupHost(host); err == nil {
			cfg.host = host
			return nil
		}

		return errors.New("invalid host")
	})
}

// withPort sets and validates the TCP port.
func withPort(port int) ConnOption {
	return newConnOptFunc("withPort", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port: %d", port)
		}

		cfg.port = port

		return nil
	})
}

func durationOption(name string, d time.Duration, min, max time.Duration, set func(cfg *ConnectionConfig, d time.Duration)) ConnOption {
	return newConnOptFunc(name, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if d < min || d > max {
			return fmt.Errorf("%s should be between %v and %v", name, min, max)
		}

		set(cfg, d)

		return nil
	})
}

// WithConnectTimeout sets the TCP connect timeout. It should be between
// 1 and 30 seconds.
func WithConnectTimeout(d time.Duration) ConnOption {
	return durationOption("WithConnectTimeout", d, 1*time.Second, 30*time.Second,
		func(cfg *ConnectionConfig, d time.Duration) { cfg.connectTimeout = d })
}

// WithCommandTimeout sets the reply deadline for motion and transfer
// commands. It should be between 1 and 120 seconds.
func WithCommandTimeout(d time.Duration) ConnOption {
	return durationOption("WithCommandTimeout", d, 1*time.Second, 120*time.Second,
		func(cfg *ConnectionConfig, d time.Duration) { cfg.commandTimeout = d })
}

// WithStatusTimeout sets the reply deadline for pure status queries.
// It should be between 100 milliseconds and 60 seconds.
func WithStatusTimeout(d time.Duration) ConnOption {
	return durationOption("WithStatusTimeout", d, 100*time.Millisecond, 60*time.Second,
		func(cfg *ConnectionConfig, d time.Duration) { cfg.statusTimeout = d })
}

// WithConfirmationTimeout sets the operator confirmation deadline.
// It should be between 1 second and 10 minutes.
func WithConfirmationTimeout(d time.Duration) ConnOption {
	return durationOption("WithConfirmationTimeout", d, 1*time.Second, 10*time.Minute,
		func(cfg *ConnectionConfig, d time.Duration) { cfg.confirmationTimeout = d })
}

// WithSettleDelay sets the pause between scripted steps after a successful
// response. It should be between 0 and 10 seconds.
func WithSettleDelay(d time.Duration) ConnOption {
	return durationOption("WithSettleDelay", d, 0, 10*time.Second,
		func(cfg *ConnectionConfig, d time.Duration) { cfg.settleDelay = d })
}

// WithWriteTimeout sets the socket write deadline. It should be between
// 1 and 30 seconds.
func WithWriteTimeout(d time.Duration) ConnOption {
	return durationOption("WithWriteTimeout", d, 1*time.Second, 30*time.Second,
		func(cfg *ConnectionConfig, d time.Duration) { cfg.writeTimeout = d })
}

// WithCloseConnTimeout sets the timeout for closing the whole link.
// It should be between 1 and 30 seconds.
func WithCloseConnTimeout(d time.Duration) ConnOption {
	return durationOption("WithCloseConnTimeout", d, 1*time.Second, 30*time.Second,
		func(cfg *ConnectionConfig, d time.Duration) { cfg.closeConnTimeout = d })
}

// WithSenderQueueSize sets the size of the sender mailbox, which buffers
// outbound frames before the sender task writes them to the wire.
//
// This option allows you to control the backpressure level for unsent
// frames. It should be between 1 and 1000.
func WithSenderQueueSize(size int) ConnOption {
	return newConnOptFunc("WithSenderQueueSize", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if size < 1 || size > 1000 {
			return fmt.Errorf("sender queue size should be between 1 and 1000")
		}

		cfg.senderQueueSize = size

		return nil
	})
}

// WithEventQueueSize sets the size of the event mailbox between the receive
// task and the Notifier. It should be between 1 and 1000.
func WithEventQueueSize(size int) ConnOption {
	return newConnOptFunc("WithEventQueueSize", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if size < 1 || size > 1000 {
			return fmt.Errorf("event queue size should be between 1 and 1000")
		}

		cfg.eventQueueSize = size

		return nil
	})
}

// WithStatusPollInterval enables a background GetStatus query at the given
// interval while the link is idle; a run owning the link makes the poll skip
// its tick. It should be between 100 milliseconds and 5 minutes; zero
// disables polling.
func WithStatusPollInterval(d time.Duration) ConnOption {
	return newConnOptFunc("WithStatusPollInterval", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if d == 0 {
			cfg.statusPollInterval = 0
			return nil
		}
		if d < 100*time.Millisecond || d > 5*time.Minute {
			return fmt.Errorf("status poll interval should be between 100ms and 5m")
		}

		cfg.statusPollInterval = d

		return nil
	})
}

// WithCommandTimeoutClass overrides the reply deadline for one command name,
// e.g. a slow Alignment variant or a fast vendor-specific query.
func WithCommandTimeoutClass(name string, d time.Duration) ConnOption {
	return newConnOptFunc("WithCommandTimeoutClass", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if name == "" {
			return errors.New("command name is empty")
		}
		if d <= 0 {
			return fmt.Errorf("timeout for %s should be positive", name)
		}

		cfg.timeoutClasses[name] = d

		return nil
	})
}

// WithLogger sets the logger instance for the link.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}

		cfg.logger = l

		return nil
	})
}

// WithNotifier attaches the collaborator that receives events, status
// changes and log lines.
func WithNotifier(n efem.Notifier) ConnOption {
	return newConnOptFunc("WithNotifier", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return efem.ErrConnConfigNil
		}
		if n == nil {
			return errors.New("notifier is nil")
		}

		cfg.notifier = n

		return nil
	})
}
