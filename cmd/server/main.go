package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/rmq-console/internal/application"
	"github.com/eugenenazirov/rmq-console/internal/config"
	"github.com/eugenenazirov/rmq-console/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "parse flags")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger, app.Close)
}

// parseFlags maps command-line flags onto config overrides. Console flags only
// override when given explicitly, so unset flags leave the YAML value and the
// resolver fallbacks in charge.
func parseFlags(args []string) (*config.CLIOverrides, error) {
	app := kingpin.New("rmq-console", "Message broker console - resolves and serves runtime configuration")
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	port := app.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPS := app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	logLevel := app.Flag("log-level", "Log level (debug, info, warn, error)").String()

	var watchSet bool
	watch := app.Flag("watch-config", "Re-bind console settings when the configuration file changes").IsSetByUser(&watchSet).Bool()

	var (
		addrSet, vipSet, dataPathSet, collectSet, loginSet bool
		accessKeySet, secretKeySet, tlsSet, timeoutSet     bool
	)
	namesrvAddr := app.Flag("namesrv-addr", "Name server address list, e.g. 127.0.0.1:9876;127.0.0.2:9876").IsSetByUser(&addrSet).String()
	vipChannel := app.Flag("vip-channel", "Send messages through the VIP channel (true/false)").IsSetByUser(&vipSet).String()
	dataPath := app.Flag("data-path", "Console data directory").IsSetByUser(&dataPathSet).String()
	collect := app.Flag("enable-dashboard-collect", "Collect dashboard data (true/false)").IsSetByUser(&collectSet).String()
	login := app.Flag("login-required", "Require console login").IsSetByUser(&loginSet).Bool()
	accessKey := app.Flag("access-key", "ACL access key").IsSetByUser(&accessKeySet).String()
	secretKey := app.Flag("secret-key", "ACL secret key").IsSetByUser(&secretKeySet).String()
	useTLS := app.Flag("use-tls", "Use TLS towards the brokers").IsSetByUser(&tlsSet).Bool()
	timeoutMillis := app.Flag("timeout-millis", "Broker request timeout in milliseconds").IsSetByUser(&timeoutSet).Int64()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}

	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if watchSet {
		overrides.WatchConfig = watch
	}

	console := &overrides.Console
	if addrSet {
		console.NamesrvAddr = namesrvAddr
	}
	if vipSet {
		console.IsVIPChannel = vipChannel
	}
	if dataPathSet {
		console.DataPath = dataPath
	}
	if collectSet {
		console.EnableDashBoardCollect = collect
	}
	if loginSet {
		console.LoginRequired = login
	}
	if accessKeySet {
		console.AccessKey = accessKey
	}
	if secretKeySet {
		console.SecretKey = secretKey
	}
	if tlsSet {
		console.UseTLS = useTLS
	}
	if timeoutSet {
		console.TimeoutMillis = timeoutMillis
	}

	return overrides, nil
}

// shutdown waits for a termination signal, drains the server and then runs
// release, which stops the configuration watcher.
func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger, release func() error) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}

	if release == nil {
		return
	}
	if err := release(); err != nil {
		logger.Warn("failed to release application resources", zap.Error(err))
	}
}
