package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Bridge behavior
	viper.SetDefault("bridge.trigger_word", "Prometheus")
	viper.SetDefault("bridge.speak_word", "speak")
	viper.SetDefault("bridge.bot_name", "Prometheus")
	viper.SetDefault("bridge.operators", []string{})
	viper.SetDefault("bridge.max_concurrency", 4)
	viper.SetDefault("bridge.queue_size", 16)

	// Context store
	viper.SetDefault("history.max_entries", 20)
	viper.SetDefault("history.max_conversations", 50)
	viper.SetDefault("history.max_text_runes", 500)
	viper.SetDefault("prompt.context_window", 10)

	// Rate limiting
	viper.SetDefault("guard.min_interval", 2*time.Second)

	// Model backend
	viper.SetDefault("llm.endpoint", "http://ollama:8000")
	viper.SetDefault("llm.request_timeout", 120*time.Second)
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 500)

	// Voice output
	viper.SetDefault("speech.enabled", true)
	viper.SetDefault("speech.endpoint", "http://piper-tts:5000")
	viper.SetDefault("speech.request_timeout", 60*time.Second)
	viper.SetDefault("speech.play_audio", true)

	// Messaging gateway
	viper.SetDefault("gateway.endpoint", "http://whatsapp:3000")
	viper.SetDefault("gateway.token", "")
	viper.SetDefault("gateway.channel", "whatsapp")

	// Contacts
	viper.SetDefault("contacts.roster_file", "")

	// Health endpoint (disabled unless a listen address is set)
	viper.SetDefault("health.listen", "")
}
