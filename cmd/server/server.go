package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stephnangue/gatehouse/auth"
	"github.com/stephnangue/gatehouse/config"
	gatehousehttp "github.com/stephnangue/gatehouse/http"
	"github.com/stephnangue/gatehouse/listener"
	log "github.com/stephnangue/gatehouse/logger"
	"github.com/stephnangue/gatehouse/principal"
)

const (
	modeIssuer  = "issuer"
	modeRelying = "relying"
)

var (
	configPath string
	serverMode string

	ServerCmd = &cobra.Command{
		Use:   "server",
		Short: "This command starts a gatehouse server that responds to API requests",
		Long: `
Usage: gatehouse server [options]

  Start the identity-owning issuer:

      $ gatehouse server --config=/etc/gatehouse/config.hcl

  Start a relying service that validates tokens through the issuer's
  introspection endpoint instead of holding principal secrets:

      $ gatehouse server --config=/etc/gatehouse/relying.hcl --mode=relying
`,
		RunE: run,
	}
)

func init() {
	ServerCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (e.g., path/to/gatehouse.hcl)")
	ServerCmd.Flags().StringVar(&serverMode, "mode", modeIssuer, "Server mode: issuer or relying")
}

func run(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return fmt.Errorf("config file path is required. Use -c or --config flag")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Hold log output behind a gate until the server is wired, then
	// flush everything at once.
	gate := log.NewGatedWriter(os.Stdout, 1<<20)
	logger := buildLogger(cfg, gate)
	defer logger.Close()

	handler, err := buildHandler(cfg, logger)
	if err != nil {
		return err
	}

	apiListenerCfg, err := cfg.GetApiListener()
	if err != nil {
		return err
	}

	apiListener := listener.NewApiListener(listener.ApiListenerConfig{
		Logger:      logger.WithSubsystem("listener"),
		Address:     apiListenerCfg.Address,
		TLSCertFile: apiListenerCfg.TLSCertFile,
		TLSKeyFile:  apiListenerCfg.TLSKeyFile,
		TLSEnabled:  apiListenerCfg.TLSEnabled,
	}, handler)

	logger.Info("server initialized",
		log.String("mode", serverMode),
		log.String("address", apiListener.Addr()))
	gate.OpenGate()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return apiListener.Start(ctx)
}

// buildHandler wires the mode-specific HTTP surface. The issuer owns
// the principal store and validates locally; the relying service holds
// no secrets and delegates to the issuer's introspection endpoint.
func buildHandler(cfg *config.Config, logger log.Logger) (http.Handler, error) {
	switch serverMode {
	case modeIssuer:
		store, err := buildStorage(cfg)
		if err != nil {
			return nil, err
		}
		service := auth.NewService(auth.Config{
			Issuer:    cfg.JWT.Issuer,
			TokenTTL:  cfg.JWT.TokenTTL(),
			ClockSkew: cfg.JWT.ClockSkew(),
		}, store, store, logger)

		return gatehousehttp.Handler(&gatehousehttp.HandlerProperties{
			Service: service,
			Logger:  logger.WithSubsystem("http"),
		}), nil

	case modeRelying:
		if cfg.Introspection == nil || cfg.Introspection.Endpoint == "" {
			return nil, fmt.Errorf("relying mode requires an introspection block with an endpoint")
		}
		client := auth.NewHTTPIntrospectionClient(cfg.Introspection.Endpoint, cfg.Introspection.Timeout())
		validator := auth.NewRemoteValidator(client, cfg.JWT.Issuer)

		return gatehousehttp.RelyingHandler(&gatehousehttp.RelyingHandlerProperties{
			Validator: validator,
			Logger:    logger.WithSubsystem("http"),
		}), nil

	default:
		return nil, fmt.Errorf("unknown server mode: %s", serverMode)
	}
}

// buildStorage constructs the configured principal store. Only the
// in-memory store is built in; SQL-backed stores plug in behind the
// principal.Store interface.
func buildStorage(cfg *config.Config) (*principal.InmemStore, error) {
	if cfg.Storage != nil && cfg.Storage.Type != "inmem" {
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
	return principal.NewInmemStore(), nil
}

func buildLogger(cfg *config.Config, gate *log.GatedWriter) log.Logger {
	logCfg := &log.Config{
		Level:   log.ParseLogLevel(cfg.LogLevel),
		Format:  log.ParseOutputFormat(cfg.LogFormat),
		Outputs: []io.Writer{gate},
	}
	if cfg.LogFile != "" {
		logCfg.FileConfig = &log.FileConfig{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogRotateMegabytes,
			MaxBackups: cfg.LogRotateMaxFiles,
		}
	}
	return log.NewZerologLogger(logCfg)
}
