package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-broker/gateway"
	"chat-broker/httpapi"
	"chat-broker/internal"
	"chat-broker/moderation"
	"chat-broker/runtime"
	"chat-broker/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation
	var moderator *moderation.Moderator
	if config.ModerationEnabled {
		censoredChar, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		data, err := moderation.LoadDefault()
		if err != nil {
			return fmt.Errorf("loading censored words failed: %w", err)
		}
		m, err := moderation.NewModerator(data.Words, censoredChar)
		if err != nil {
			return fmt.Errorf("building moderator failed: %w", err)
		}
		moderator = &m
		log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	}

	// 3. Engine
	registry := runtime.NewRegistry()
	broker := runtime.NewBroker(log, registry, moderator, runtime.Options{
		RoomLogCapacity:   config.RoomLogCapacity,
		ThreadLogCapacity: config.ThreadLogCapacity,
		TypingTTL:         config.TypingTTL,
	})

	// 4. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewHealthWorker(log, config.HealthInterval, broker.Stats))

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 6. HTTP & Websocket Surface
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	gw := gateway.NewGateway(log, broker, registry, config.SendBufferSize)
	router.GET("/ws", gw.Handler())
	httpapi.New(log, broker).Register(router)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
