package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/inference"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/server"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
)

const banner = `
   ___                 _____      __        __
  / _ |___ _______    / ___/__ _ / /____ _ / /__  ___ _
 / __ / -_) __/ _ \  / /__/ _ '// __/ _ '// / _ \/ _ '/
/_/ |_\__/_/  \___/  \___/\_,_/ \__/\_,_//_/\___/\_, /
                                                /___/
`

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the AeroCatalog API server",
		Long:  "Start the HTTP server for the catalog, developer accounts, API keys and the chat assistant.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntP("port", "p", 5000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(os.Stderr, cfg.Logging, dev)

	// 1. Database
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	logger.Info("database ready", "driver", st.Driver())

	admins, err := st.ListAdmins(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	} else if len(admins) == 0 {
		logger.Warn("no admin account found - run: aerocatalog admin create --email <email>")
	}

	// 2. Token signing secret
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			st.Close()
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Warn("auth.jwt_secret is not set; using a random secret, tokens will not survive a restart")
	}

	// 3. Inference endpoint
	client, err := inference.NewClient(inference.Options{
		BaseURL:     cfg.Inference.BaseURL,
		Model:       cfg.Inference.Model,
		Token:       cfg.Inference.APIToken,
		Temperature: cfg.Inference.Temperature,
		MaxTokens:   cfg.Inference.MaxTokens,
		Timeout:     cfg.Inference.Timeout,
	}, logger)
	if err != nil {
		st.Close()
		return err
	}

	// 4. Services and HTTP server
	maxBody, err := cfg.Server.MaxBodyBytes()
	if err != nil {
		st.Close()
		return err
	}
	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORS.Origins,
		MaxBodySize:     maxBody,
		APIKeyHeader:    cfg.Auth.APIKeyHeader,
		LoginPerMinute:  cfg.Server.RateLimit.LoginPerMinute,
		ChatPerMinute:   cfg.Server.RateLimit.ChatPerMinute,
		Version:         versionString(),
	}
	srv, err := server.New(srvCfg, server.Services{
		Store:   st,
		Auth:    service.NewAuthService(st, jwtSecret, cfg.Auth.TokenTTL, logger),
		Keys:    service.NewAPIKeyService(st, cfg.APIKeys.MaxActive, cfg.APIKeys.Prefix, logger),
		Chat:    service.NewChatService(st, client, cfg.Chat.MaxSessions, cfg.Chat.TitleLength, logger),
		Catalog: service.NewCatalogService(st, logger),
	}, logger)
	if err != nil {
		st.Close()
		return err
	}

	fmt.Printf("→ AeroCatalog %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d/api\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/api/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/api/health\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Inference:  %s (%s)\n", cfg.Inference.BaseURL, cfg.Inference.Model)
	fmt.Println()

	return srv.ListenAndServe()
}
