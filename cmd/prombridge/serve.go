package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gonzalo-munillag/RPI-Chatbot/contacts"
	"github.com/gonzalo-munillag/RPI-Chatbot/guard"
	"github.com/gonzalo-munillag/RPI-Chatbot/history"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus/adapters/gateway"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/channelruntime/bridge"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/healthcheck"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/logutil"
	"github.com/gonzalo-munillag/RPI-Chatbot/providers/ollama"
	"github.com/gonzalo-munillag/RPI-Chatbot/speech"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge against the gateway, model, and voice backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			gw, err := gatewayFromViper(logger)
			if err != nil {
				return err
			}
			model := ollama.New(
				viper.GetString("llm.endpoint"),
				viper.GetDuration("llm.request_timeout"),
			)

			var speaker bridge.Speaker
			if viper.GetBool("speech.enabled") {
				speaker = speech.New(
					viper.GetString("speech.endpoint"),
					viper.GetDuration("speech.request_timeout"),
					viper.GetBool("speech.play_audio"),
				)
			}

			resolver, err := resolverFromViper(logger, gw)
			if err != nil {
				return err
			}

			store := history.NewStore(history.Options{
				MaxEntries:       viper.GetInt("history.max_entries"),
				MaxConversations: viper.GetInt("history.max_conversations"),
				MaxTextRunes:     viper.GetInt("history.max_text_runes"),
				Logger:           logger,
			})
			gate := guard.NewRateGate(guard.Config{
				MinInterval: viper.GetDuration("guard.min_interval"),
			})

			runtime, err := bridge.NewRuntime(bridge.Dependencies{
				Logger:   logger,
				Adapter:  gw,
				LLM:      model,
				Speech:   speaker,
				Resolver: resolver,
				History:  store,
				Rate:     gate,
			}, bridge.Options{
				TriggerWord:    viper.GetString("bridge.trigger_word"),
				SpeakWord:      viper.GetString("bridge.speak_word"),
				BotName:        viper.GetString("bridge.bot_name"),
				MaxConcurrency: viper.GetInt("bridge.max_concurrency"),
				QueueSize:      viper.GetInt("bridge.queue_size"),
				RequestTimeout: viper.GetDuration("llm.request_timeout"),
				SpeechTimeout:  viper.GetDuration("speech.request_timeout"),
				ContextWindow:  viper.GetInt("prompt.context_window"),
				Temperature:    viper.GetFloat64("llm.temperature"),
				MaxTokens:      viper.GetInt("llm.max_tokens"),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if listen := strings.TrimSpace(viper.GetString("health.listen")); listen != "" {
				srv, err := healthcheck.Start(healthcheck.Options{
					Listen: listen,
					Logger: logger,
					Checks: map[string]healthcheck.Check{
						"llm": model.Health,
					},
				})
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			logger.Info("bridge_start",
				"gateway_endpoint", viper.GetString("gateway.endpoint"),
				"llm_endpoint", viper.GetString("llm.endpoint"),
				"speech_enabled", speaker != nil,
				"trigger_word", viper.GetString("bridge.trigger_word"),
			)

			errCh := make(chan error, 2)
			go func() { errCh <- gw.Run(ctx) }()
			go func() { errCh <- runtime.Run(ctx) }()

			err = <-errCh
			stop()
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("bridge_stop", "reason", "context_canceled")
				return nil
			}
			return err
		},
	}
}

func gatewayFromViper(logger *slog.Logger) (*gateway.Client, error) {
	channel := bus.Channel(strings.TrimSpace(viper.GetString("gateway.channel")))
	return gateway.New(gateway.Options{
		Endpoint: viper.GetString("gateway.endpoint"),
		Token:    viper.GetString("gateway.token"),
		Channel:  channel,
		Logger:   logger,
	})
}

func resolverFromViper(logger *slog.Logger, gw *gateway.Client) (*contacts.Resolver, error) {
	var roster map[string]string
	if path := strings.TrimSpace(viper.GetString("contacts.roster_file")); path != "" {
		var err error
		roster, err = contacts.LoadRoster(path)
		if err != nil {
			return nil, fmt.Errorf("load contacts roster: %w", err)
		}
	}
	return contacts.NewResolver(contacts.ResolverOptions{
		Operators: viper.GetStringSlice("bridge.operators"),
		Roster:    roster,
		Lookup:    gw.Lookup,
		Logger:    logger,
	}), nil
}
