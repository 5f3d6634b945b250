package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"telegram-crypto-shop/internal/application"
	"telegram-crypto-shop/internal/config"
	"telegram-crypto-shop/internal/domain/ports/adapter"
	"telegram-crypto-shop/internal/infra/db/postgres"
	"telegram-crypto-shop/internal/infra/i18n"
	"telegram-crypto-shop/internal/infra/logging"
	"telegram-crypto-shop/internal/infra/metrics"
	"telegram-crypto-shop/internal/infra/payment"
	red "telegram-crypto-shop/internal/infra/redis"
	"telegram-crypto-shop/internal/infra/telegram"
	"telegram-crypto-shop/internal/infra/web"
	"telegram-crypto-shop/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()

	userRepo := postgres.NewPostgresUserRepo(pool)
	itemRepo := postgres.NewPostgresItemRepo(pool)
	invoiceRepo := postgres.NewPostgresInvoiceRepo(pool)
	txManager := postgres.NewTxManager(pool)
	stateRepo := red.NewConversationStateRepo(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	translators, err := i18n.NewRegistry(i18n.LocalesFS, []string{"en", "ru"}, cfg.Bot.DefaultLang)
	if err != nil {
		logger.Fatal().Err(err).Msg("locale tables failed to load")
	}

	gateway, err := payment.NewCryptoPayGateway(cfg.GatewayToken(), cfg.Payment.CryptoPay.Testnet)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway init failed")
	}
	probeGateway(ctx, gateway, logger)

	userUC := usecase.NewUserUseCase(userRepo, txManager, cfg.Bot.DefaultLang, logger)
	purchaseUC := usecase.NewPurchaseUseCase(invoiceRepo, itemRepo, userRepo, gateway, translators, cfg.Catalog, logger)

	facade := application.NewBotFacade(userUC, purchaseUC, stateRepo, translators, logger)

	bot, err := telegram.NewRealTelegramBotAdapter(cfg, facade, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram bot init failed")
	}
	purchaseUC.AttachSender(bot)
	logger.Info().Str("bot", bot.Username()).Bool("testnet", cfg.Payment.CryptoPay.Testnet).Msg("bot authorized")

	server := web.NewServer(
		cfg.Payment.CryptoPay.WebhookPort,
		cfg.Payment.CryptoPay.WebhookPath,
		cfg.GatewayToken(),
		purchaseUC,
		logger,
	)

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()
	go func() { errCh <- bot.StartPolling(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("component failed")
		}
	}

	bot.StopPolling()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("webhook server shutdown failed")
	}
	logger.Info().Msg("stopped")
}

// probeGateway logs the gateway identity and balances at startup. The bot
// still comes up when the probe fails; buys will surface the real error.
func probeGateway(ctx context.Context, gateway adapter.PaymentGateway, logger *zerolog.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	me, err := gateway.GetMe(probeCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("gateway getMe probe failed")
		return
	}
	logger.Info().Int64("app_id", me.AppID).Str("app", me.Name).
		Str("processing_bot", me.PaymentProcessingBotName).Msg("payment gateway authorized")

	balances, err := gateway.GetBalances(probeCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("gateway balance probe failed")
		return
	}
	for _, b := range balances {
		logger.Info().Str("currency", b.Currency).Str("available", b.Available).Msg("gateway balance")
	}
}
