package logging

import (
	"io"
	"os"
	"time"

	"github.com/fanlinkhq/fanlink/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup initializes the global logger based on configuration
func Setup(cfg *config.LoggingConfig, env string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer
	if cfg.Format == "json" || env == "production" {
		output = os.Stdout
	} else {
		// Pretty console output for development
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "fanlink").
		Logger()
}

// NewLogger creates a new logger with additional context
func NewLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// RequestLogger is a Gin middleware for structured request logging
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID := c.GetString("request_id")

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else if c.Writer.Status() >= 400 {
			event = log.Warn()
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", raw).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("HTTP request")
	}
}

// LogSubscriptionEvent logs a subscription ledger write
func LogSubscriptionEvent(action, subscriberID, creatorID string, tierLevel int, expiresAt time.Time) {
	log.Info().
		Str("action", action).
		Str("subscriber_id", subscriberID).
		Str("creator_id", creatorID).
		Int("tier_level", tierLevel).
		Time("expires_at", expiresAt).
		Msg("Subscription event")
}

// LogMessageEvent logs a direct message send or read receipt update
func LogMessageEvent(action, conversationID, senderID, recipientID string) {
	log.Info().
		Str("action", action).
		Str("conversation_id", conversationID).
		Str("sender_id", senderID).
		Str("recipient_id", recipientID).
		Msg("Message event")
}

// LogAccessDenied logs a denied access decision with the rule that denied it
func LogAccessDenied(rule, actorID, resourceID string) {
	log.Debug().
		Str("rule", rule).
		Str("actor_id", actorID).
		Str("resource_id", resourceID).
		Msg("Access denied")
}

// LogError logs an error with context
func LogError(err error, requestID, component, operation string) {
	log.Error().
		Err(err).
		Str("request_id", requestID).
		Str("component", component).
		Str("operation", operation).
		Msg("Error occurred")
}
