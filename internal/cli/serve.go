package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"chat-relay/handler"
	"chat-relay/internal/config"
	"chat-relay/internal/integrations/openai"
	"chat-relay/internal/integrations/paramstore"
	"chat-relay/internal/logging"
	"chat-relay/internal/telemetry"
	"chat-relay/internal/usecase"
)

const (
	tracerName       = "chat-relay"
	shutdownTimeout  = 10 * time.Second
	lambdaRuntimeEnv = "AWS_LAMBDA_RUNTIME_API"
)

// awsConfigLoader is swapped in tests so that no AWS credentials are needed.
type awsConfigLoader func(ctx context.Context) (aws.Config, error)

func loadDefaultAWSConfig(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay (HTTP server, or Lambda handler inside the Lambda runtime)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceVersion: Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}()

	h, err := buildHandler(ctx, cfg, log, tel.Tracer(tracerName), loadDefaultAWSConfig)
	if err != nil {
		return err
	}

	if os.Getenv(lambdaRuntimeEnv) != "" {
		log.Info().Str("version", Version).Msg("starting lambda handler")
		lambda.Start(h.Handle)
		return nil
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.WithCORS(h, cfg.Origins()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return listenAndServe(ctx, srv, log)
}

// buildHandler wires key source, OpenAI client, chat service and handler.
func buildHandler(ctx context.Context, cfg config.Config, log zerolog.Logger, tracer trace.Tracer, loadAWS awsConfigLoader) (*handler.Handler, error) {
	keys, err := newKeySource(ctx, cfg, loadAWS)
	if err != nil {
		return nil, err
	}
	if !cfg.HasCredential() {
		log.Warn().Msg("OPENAI_API_KEY is not set; chat requests will fail with INVALID_API_KEY")
	}

	client, err := openai.NewClient(keys, openai.WithBaseURL(cfg.OpenAIBaseURL))
	if err != nil {
		return nil, err
	}

	params := usecase.ModelParams{
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		SystemPrompt: cfg.SystemPrompt,
	}
	svc, err := usecase.NewChatService(client, params,
		usecase.WithTracer(tracer),
		usecase.WithLogger(log.With().Str("component", "chat").Logger()),
	)
	if err != nil {
		return nil, err
	}

	return handler.NewHandler(svc,
		handler.WithLogger(log.With().Str("component", "handler").Logger()),
		handler.WithVersion(Version),
	)
}

// newKeySource prefers an explicit key and falls back to Parameter Store when
// a prefix is configured. With neither, the empty static key makes every chat
// request fail as a misconfiguration instead of refusing to start.
func newKeySource(ctx context.Context, cfg config.Config, loadAWS awsConfigLoader) (openai.KeySource, error) {
	if cfg.OpenAIAPIKey != "" || cfg.ParamPrefix == "" {
		return openai.StaticKey(cfg.OpenAIAPIKey), nil
	}

	awsCfg, err := loadAWS(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	ssmClient, err := paramstore.NewFromConfig(awsCfg)
	if err != nil {
		return nil, err
	}
	return openai.NewParamStoreKey(ssmClient, cfg.ParamPrefix)
}

func listenAndServe(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
