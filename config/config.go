package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/zalando/sieve"
	"github.com/zalando/sieve/filters/flowid"
	"github.com/zalando/sieve/net"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address                    string        `yaml:"address"`
	SupportListener            string        `yaml:"support-listener"`
	ReadTimeoutServer          time.Duration `yaml:"read-timeout-server"`
	ReadHeaderTimeoutServer    time.Duration `yaml:"read-header-timeout-server"`
	WriteTimeoutServer         time.Duration `yaml:"write-timeout-server"`
	IdleTimeoutServer          time.Duration `yaml:"idle-timeout-server"`
	WaitForHealthcheckInterval time.Duration `yaml:"wait-for-healthcheck-interval"`

	// proxy protocol:
	EnableProxyProtocol            bool          `yaml:"enable-proxy-protocol"`
	ProxyProtocolAllowList         *listFlag     `yaml:"proxy-protocol-allow-list"`
	ProxyProtocolDenyList          *listFlag     `yaml:"proxy-protocol-deny-list"`
	ProxyProtocolSkipList          *listFlag     `yaml:"proxy-protocol-skip-list"`
	ProxyProtocolReadHeaderTimeout time.Duration `yaml:"proxy-protocol-read-header-timeout"`

	// filters:
	SourceAllowList *listFlag  `yaml:"source-allow-list"`
	EchoHeaders     headerFlag `yaml:"echo-header"`

	// rate limit:
	RateLimit          float64 `yaml:"rate-limit"`
	RateLimitBurst     int     `yaml:"rate-limit-burst"`
	RateLimitPerClient bool    `yaml:"rate-limit-per-client"`

	// flow id:
	FlowIDGenerator string `yaml:"flow-id-generator"`
	FlowIDLength    int    `yaml:"flow-id-length"`
	FlowIDReuse     bool   `yaml:"flow-id-reuse"`

	// logging:
	ApplicationLogLevel       log.Level `yaml:"-"`
	ApplicationLogLevelString string    `yaml:"application-log-level"`
	ApplicationLogPrefix      string    `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled bool      `yaml:"application-log-json-enabled"`
	AccessLogDisabled         bool      `yaml:"access-log-disabled"`
	AccessLogJSONEnabled      bool      `yaml:"access-log-json-enabled"`

	// metrics:
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	EnableRuntimeMetrics         bool      `yaml:"runtime-metrics"`
	HistogramMetricBuckets       []float64 `yaml:"-"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`

	// tracing:
	OpenTracingOperationName string `yaml:"opentracing-operation-name"`
}

const (
	defaultApplicationLogPrefix = "[APP]"

	// environment keys:
	logLevelEnv = "SIEVE_LOG_LEVEL"
)

func NewConfig() *Config {
	cfg := new(Config)
	cfg.ProxyProtocolAllowList = commaListFlag()
	cfg.ProxyProtocolDenyList = commaListFlag()
	cfg.ProxyProtocolSkipList = commaListFlag()
	cfg.SourceAllowList = commaListFlag()

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", ":9090", "network address that sieve should listen on")
	flag.StringVar(&cfg.SupportListener, "support-listener", ":9911", "network address used for exposing the /metrics and /health endpoints. An empty value disables the support listener")
	flag.DurationVar(&cfg.ReadTimeoutServer, "read-timeout-server", 5*time.Minute, "set ReadTimeout for http server connections")
	flag.DurationVar(&cfg.ReadHeaderTimeoutServer, "read-header-timeout-server", 60*time.Second, "set ReadHeaderTimeout for http server connections")
	flag.DurationVar(&cfg.WriteTimeoutServer, "write-timeout-server", 60*time.Second, "set WriteTimeout for http server connections")
	flag.DurationVar(&cfg.IdleTimeoutServer, "idle-timeout-server", 60*time.Second, "set IdleTimeout for http server connections")
	flag.DurationVar(&cfg.WaitForHealthcheckInterval, "wait-for-healthcheck-interval", 0, "period waiting to become unhealthy in the loadbalancer pool in front of sieve before shutting down on SIGTERM")

	// proxy protocol:
	flag.BoolVar(&cfg.EnableProxyProtocol, "enable-proxy-protocol", false, "enables the PROXY protocol on the listener")
	flag.Var(cfg.ProxyProtocolAllowList, "proxy-protocol-allow-list", "set comma separated list of upstream addresses and CIDRs allowed to send a PROXY protocol header")
	flag.Var(cfg.ProxyProtocolDenyList, "proxy-protocol-deny-list", "set comma separated list of upstream addresses and CIDRs whose connections are rejected when sending a PROXY protocol header")
	flag.Var(cfg.ProxyProtocolSkipList, "proxy-protocol-skip-list", "set comma separated list of upstream addresses and CIDRs whose PROXY protocol header is not read")
	flag.DurationVar(&cfg.ProxyProtocolReadHeaderTimeout, "proxy-protocol-read-header-timeout", 0, "set the timeout of reading the PROXY protocol header, zero means the library default")

	// filters:
	flag.Var(cfg.SourceAllowList, "source-allow-list", "set comma separated list of addresses and CIDRs of the connected peers allowed to send requests")
	flag.Var(&cfg.EchoHeaders, "echo-header", "name of a request header echoed by the command, can be repeated")

	// rate limit:
	flag.Float64Var(&cfg.RateLimit, "rate-limit", 0, "requests per second accepted by sieve, zero disables the rate limit")
	flag.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", 1, "number of requests accepted in a burst above the rate limit")
	flag.BoolVar(&cfg.RateLimitPerClient, "rate-limit-per-client", false, "applies the rate limit to every connected peer separately")

	// flow id:
	flag.StringVar(&cfg.FlowIDGenerator, "flow-id-generator", sieve.FlowIDStandard, "flow id generator, one of standard, ulid, uuid or none")
	flag.IntVar(&cfg.FlowIDLength, "flow-id-length", flowid.DefaultLength, "length of the flow ids of the standard generator")
	flag.BoolVar(&cfg.FlowIDReuse, "flow-id-reuse", false, "reuse valid flow ids of the incoming requests")

	// logging:
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", "INFO", "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", defaultApplicationLogPrefix, "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.BoolVar(&cfg.AccessLogDisabled, "access-log-disabled", false, "when this flag is set, no access log is printed")
	flag.BoolVar(&cfg.AccessLogJSONEnabled, "access-log-json-enabled", false, "when this flag is set, log in JSON format is used")

	// metrics:
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", "", "replaces the default namespace of the metrics")
	flag.BoolVar(&cfg.EnableRuntimeMetrics, "runtime-metrics", true, "enables go runtime metrics")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", "", "use custom buckets for prometheus histograms, must be a comma-separated list of numbers")

	// tracing:
	flag.StringVar(&cfg.OpenTracingOperationName, "opentracing-operation-name", "", "operation name of the filter evaluation spans")

	cfg.Flags = flag
	return cfg
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	_, err = c.parseHistogramBuckets()
	if err != nil {
		return err
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate-limit: %v", c.RateLimit)
	}

	_, err = sieve.NewFlowIDGenerator(c.FlowIDGenerator, c.FlowIDLength)
	if err != nil {
		return err
	}

	for name, lf := range map[string]*listFlag{
		"proxy-protocol-allow-list": c.ProxyProtocolAllowList,
		"proxy-protocol-deny-list":  c.ProxyProtocolDenyList,
		"proxy-protocol-skip-list":  c.ProxyProtocolSkipList,
		"source-allow-list":         c.SourceAllowList,
	} {
		if _, err := net.ParseIPCIDRs(lf.values); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	configKeys := make(map[string]any)
	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		_ = yaml.Unmarshal(yamlFile, configKeys)

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	c.parseEnv(configKeys)

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets()
	return nil
}

func (c *Config) ToOptions() sieve.Options {
	return sieve.Options{
		// generic:
		Address:                    c.Address,
		SupportListener:            c.SupportListener,
		ReadTimeoutServer:          c.ReadTimeoutServer,
		ReadHeaderTimeoutServer:    c.ReadHeaderTimeoutServer,
		WriteTimeoutServer:         c.WriteTimeoutServer,
		IdleTimeoutServer:          c.IdleTimeoutServer,
		WaitForHealthcheckInterval: c.WaitForHealthcheckInterval,

		// proxy protocol:
		EnableProxyProtocol:            c.EnableProxyProtocol,
		ProxyProtocolAllowList:         c.ProxyProtocolAllowList.values,
		ProxyProtocolDenyList:          c.ProxyProtocolDenyList.values,
		ProxyProtocolSkipList:          c.ProxyProtocolSkipList.values,
		ProxyProtocolReadHeaderTimeout: c.ProxyProtocolReadHeaderTimeout,

		// filters:
		SourceAllowList: c.SourceAllowList.values,

		// rate limit:
		RateLimit:          c.RateLimit,
		RateLimitBurst:     c.RateLimitBurst,
		RateLimitPerClient: c.RateLimitPerClient,

		// flow id:
		FlowIDGenerator: c.FlowIDGenerator,
		FlowIDLength:    c.FlowIDLength,
		ReuseFlowID:     c.FlowIDReuse,

		// logging:
		ApplicationLogLevel:       c.ApplicationLogLevel,
		ApplicationLogPrefix:      c.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: c.ApplicationLogJSONEnabled,
		AccessLogDisabled:         c.AccessLogDisabled,
		AccessLogJSONEnabled:      c.AccessLogJSONEnabled,

		// metrics:
		MetricsPrefix:          c.MetricsPrefix,
		EnableRuntimeMetrics:   c.EnableRuntimeMetrics,
		HistogramMetricBuckets: c.HistogramMetricBuckets,

		// tracing:
		OpenTracingOperationName: c.OpenTracingOperationName,
	}
}

func (c *Config) parseHistogramBuckets() ([]float64, error) {
	if c.HistogramMetricBucketsString == "" {
		return prometheus.DefBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(c.HistogramMetricBucketsString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}
		result = append(result, bucket)
	}
	sort.Float64s(result)
	return result, nil
}

func (c *Config) parseEnv(configKeys map[string]any) {
	// Set the log level from environment variable if not set by a flag or the configuration file
	if v := os.Getenv(logLevelEnv); v != "" && !c.isSet(configKeys, "application-log-level") {
		c.ApplicationLogLevelString = v
	}
}

func (c *Config) isSet(configKeys map[string]any, name string) bool {
	if _, ok := configKeys[name]; ok {
		return true
	}

	var set bool
	c.Flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})

	return set
}
