package sieve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	ot "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/zalando/sieve/driver"
	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/flowid"
	"github.com/zalando/sieve/filters/ratelimit"
	"github.com/zalando/sieve/filters/source"
	"github.com/zalando/sieve/logging"
	"github.com/zalando/sieve/metrics"
	"github.com/zalando/sieve/proxylistener"
)

// Flow id generators.
const (
	FlowIDStandard = "standard"
	FlowIDULID     = "ulid"
	FlowIDUUID     = "uuid"
	FlowIDDisabled = "none"
)

var errMissingFilter = errors.New("missing filter")

// Options to start sieve.
type Options struct {

	// Network address that sieve listens on.
	Address string

	// Listener to serve the requests on. When set, Address is
	// ignored.
	Listener net.Listener

	// Network address of the support endpoints, /metrics and
	// /health. When empty, the support listener is disabled.
	SupportListener string

	// Timeouts of the server, see http.Server.
	ReadTimeoutServer       time.Duration
	ReadHeaderTimeoutServer time.Duration
	WriteTimeoutServer      time.Duration
	IdleTimeoutServer       time.Duration

	// Time to wait after SIGTERM, with a failing health check, before
	// shutting down the server.
	WaitForHealthcheckInterval time.Duration

	// EnableProxyProtocol enables the PROXY protocol on the listener,
	// see the proxylistener package for the address lists.
	EnableProxyProtocol            bool
	ProxyProtocolAllowList         []string
	ProxyProtocolDenyList          []string
	ProxyProtocolSkipList          []string
	ProxyProtocolReadHeaderTimeout time.Duration

	// Filter evaluated for every request. Required.
	Filter filters.Filter

	// Reply writes the response of accepted requests, from the values
	// extracted by Filter. When not set, driver.DefaultReply is used.
	Reply driver.ReplyFunc

	// Populate hooks adding custom facts to the extension store of
	// every request.
	Populate []driver.PopulateFunc

	// SourceAllowList, when set, limits the accepted requests to
	// connected peers from these addresses and networks.
	SourceAllowList []string

	// RateLimit, when greater than zero, limits the accepted requests
	// per second, with bursts of RateLimitBurst requests. With
	// RateLimitPerClient, the limit applies to every connected peer
	// separately. Requests exceeding the limit are rejected with 429.
	RateLimit          float64
	RateLimitBurst     int
	RateLimitPerClient bool

	// FlowIDGenerator is one of FlowIDStandard, FlowIDULID, FlowIDUUID
	// or FlowIDDisabled. Defaults to FlowIDStandard.
	FlowIDGenerator string

	// Length of the flow ids of the standard generator.
	FlowIDLength int

	// ReuseFlowID enables accepting valid flow ids of incoming
	// requests.
	ReuseFlowID bool

	// Application log settings, see the logging package.
	ApplicationLogLevel       log.Level
	ApplicationLogPrefix      string
	ApplicationLogOutput      io.Writer
	ApplicationLogJSONEnabled bool

	// Access log settings, see the logging package.
	AccessLogDisabled    bool
	AccessLogJSONEnabled bool
	AccessLogOutput      io.Writer

	// Metrics settings, see the metrics package.
	MetricsPrefix          string
	HistogramMetricBuckets []float64
	EnableRuntimeMetrics   bool
	PrometheusRegistry     *prometheus.Registry

	// OpenTracingTracer creates the evaluation spans. When not set, the
	// global tracer is used.
	OpenTracingTracer ot.Tracer

	// Operation name of the evaluation spans.
	OpenTracingOperationName string
}

// Server serves the requests with a driver evaluating the configured
// filter.
type Server struct {
	server   *http.Server
	listener net.Listener

	support         *http.Server
	supportListener net.Listener

	shuttingDown atomic.Bool
}

// NewFlowIDGenerator creates the flow id generator of the given kind. It
// returns nil for FlowIDDisabled.
func NewFlowIDGenerator(kind string, length int) (flowid.Generator, error) {
	switch kind {
	case "", FlowIDStandard:
		if length == 0 {
			length = flowid.DefaultLength
		}

		return flowid.NewStandardGenerator(length)
	case FlowIDULID:
		return flowid.NewULIDGenerator(), nil
	case FlowIDUUID:
		return flowid.NewUUIDGenerator(), nil
	case FlowIDDisabled:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid flow id generator: %s", kind)
	}
}

func createFilter(o Options) (filters.Filter, error) {
	if o.Filter == nil {
		return nil, errMissingFilter
	}

	var chain []filters.Filter
	if len(o.SourceAllowList) > 0 {
		allow, err := source.ClientIP(o.SourceAllowList...)
		if err != nil {
			return nil, fmt.Errorf("invalid source allow list: %w", err)
		}

		chain = append(chain, allow)
	}

	if o.RateLimit > 0 {
		burst := max(o.RateLimitBurst, 1)
		if o.RateLimitPerClient {
			chain = append(chain, ratelimit.Client(rate.Limit(o.RateLimit), burst, 0))
		} else {
			chain = append(chain, ratelimit.Service(rate.Limit(o.RateLimit), burst))
		}
	}

	if len(chain) == 0 {
		return o.Filter, nil
	}

	f := filters.Chain(append(chain, o.Filter)...)
	if name := filters.NameOf(o.Filter); name != "" {
		f = filters.Named(name, f)
	}

	return f, nil
}

func listen(o Options) (net.Listener, error) {
	l := o.Listener
	if l == nil {
		var err error
		l, err = net.Listen("tcp", o.Address)
		if err != nil {
			return nil, err
		}
	}

	if !o.EnableProxyProtocol {
		return l, nil
	}

	pl, err := proxylistener.NewListener(proxylistener.Options{
		Listener:          l,
		ReadHeaderTimeout: o.ProxyProtocolReadHeaderTimeout,
		AllowListCIDRs:    o.ProxyProtocolAllowList,
		DenyListCIDRs:     o.ProxyProtocolDenyList,
		SkipListCIDRs:     o.ProxyProtocolSkipList,
	})
	if err != nil {
		l.Close()
		return nil, err
	}

	return pl, nil
}

// New creates a server listening on the configured address. Serve starts
// serving the requests.
func New(o Options) (*Server, error) {
	f, err := createFilter(o)
	if err != nil {
		return nil, err
	}

	g, err := NewFlowIDGenerator(o.FlowIDGenerator, o.FlowIDLength)
	if err != nil {
		return nil, err
	}

	m := metrics.NewPrometheus(metrics.Options{
		Prefix:               o.MetricsPrefix,
		HistogramBuckets:     o.HistogramMetricBuckets,
		EnableRuntimeMetrics: o.EnableRuntimeMetrics,
		PrometheusRegistry:   o.PrometheusRegistry,
	})

	d, err := driver.New(driver.Options{
		Filter: f,
		Reply:  o.Reply,
		ContextOptions: driver.ContextOptions{
			FlowIDGenerator: g,
			ReuseFlowID:     o.ReuseFlowID,
			Populate:        o.Populate,
		},
		Metrics:           m,
		Tracer:            o.OpenTracingTracer,
		OperationName:     o.OpenTracingOperationName,
		AccessLogDisabled: o.AccessLogDisabled,
	})
	if err != nil {
		return nil, err
	}

	l, err := listen(o)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener: l,
		server: &http.Server{
			Handler:           d,
			ReadTimeout:       o.ReadTimeoutServer,
			ReadHeaderTimeout: o.ReadHeaderTimeoutServer,
			WriteTimeout:      o.WriteTimeoutServer,
			IdleTimeout:       o.IdleTimeoutServer,
		},
	}

	if o.SupportListener != "" {
		sl, err := net.Listen("tcp", o.SupportListener)
		if err != nil {
			l.Close()
			return nil, err
		}

		mux := http.NewServeMux()
		m.RegisterHandler("/metrics", mux)
		mux.HandleFunc("/health", s.health)
		s.supportListener = sl
		s.support = &http.Server{Handler: mux, ReadHeaderTimeout: o.ReadHeaderTimeoutServer}
	}

	return s, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	if s.shuttingDown.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Write([]byte("OK\n"))
}

// Addr returns the address of the listener.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// SupportAddr returns the address of the support listener, or nil.
func (s *Server) SupportAddr() net.Addr {
	if s.supportListener == nil {
		return nil
	}

	return s.supportListener.Addr()
}

func serveErr(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Serve serves the requests until the server is shut down or fails. The
// support listener is closed when the server stops, and the server is
// closed when the support listener fails.
func (s *Server) Serve() error {
	log.Infof("Listening on %v", s.listener.Addr())

	g, ctx := errgroup.WithContext(context.Background())
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return serveErr(s.server.Serve(s.listener))
	})

	if s.support != nil {
		log.Infof("Support listener on %v", s.supportListener.Addr())
		g.Go(func() error {
			return serveErr(s.support.Serve(s.supportListener))
		})

		g.Go(func() error {
			select {
			case <-ctx.Done():
				s.server.Close()
			case <-done:
			}

			return s.support.Shutdown(context.Background())
		})
	}

	return g.Wait()
}

// Shutdown stops the server gracefully, waiting for the in-flight
// requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	return s.server.Shutdown(ctx)
}

func newShutdownFunc(s *Server, wg *sync.WaitGroup) func(delay time.Duration) {
	once := &sync.Once{}
	wg.Add(1)

	return func(delay time.Duration) {
		once.Do(func() {
			defer wg.Done()

			s.shuttingDown.Store(true)
			log.Infof("Shutting down the server in %s...", delay)
			time.Sleep(delay)
			if err := s.Shutdown(context.Background()); err != nil {
				log.Error("Unable to shut down the server: ", err)
			}

			log.Info("Server shut down")
		})
	}
}

// Run starts sieve with the given options. It is a blocking call
// returning when the server is closed, due to a startup error or a
// gracefully handled SIGTERM signal.
func Run(o Options) error {
	logging.Init(logging.Options{
		ApplicationLogLevel:       o.ApplicationLogLevel,
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogOutput:      o.ApplicationLogOutput,
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
		AccessLogDisabled:         o.AccessLogDisabled,
		AccessLogJSONEnabled:      o.AccessLogJSONEnabled,
		AccessLogOutput:           o.AccessLogOutput,
	})

	s, err := New(o)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	shutdown := newShutdownFunc(s, &wg)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	defer signal.Stop(sigs)

	stop := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			shutdown(o.WaitForHealthcheckInterval)
		case <-stop:
			shutdown(0)
		}
	}()

	err = s.Serve()
	close(stop)
	wg.Wait()
	return err
}
