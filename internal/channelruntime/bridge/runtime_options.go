package bridge

import "time"

const (
	defaultTriggerWord    = "Prometheus"
	defaultSpeakWord      = "speak"
	defaultBotName        = "Prometheus"
	defaultMaxConcurrency = 4
	defaultQueueSize      = 16
	defaultRequestTimeout = 120 * time.Second
	defaultSpeechTimeout  = 60 * time.Second
	defaultTemperature    = 0.7
	defaultMaxTokens      = 500
)

type Options struct {
	TriggerWord    string
	SpeakWord      string
	BotName        string
	MaxConcurrency int
	QueueSize      int
	RequestTimeout time.Duration
	SpeechTimeout  time.Duration
	ContextWindow  int
	Temperature    float64
	MaxTokens      int

	// Now is the clock source; tests override it.
	Now func() time.Time
}

func normalizeOptions(opts Options) Options {
	if opts.TriggerWord == "" {
		opts.TriggerWord = defaultTriggerWord
	}
	if opts.SpeakWord == "" {
		opts.SpeakWord = defaultSpeakWord
	}
	if opts.BotName == "" {
		opts.BotName = defaultBotName
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.SpeechTimeout <= 0 {
		opts.SpeechTimeout = defaultSpeechTimeout
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}
