package config

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5555,
			PIDFile:      "/var/run/benchfox.pid",
			MaxBodyBytes: 1 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 50,
				Burst:             100,
			},
		},
		Auth: AuthConfig{
			Enabled:  false,
			User:     "",
			Password: "",
		},
		Ollama: OllamaConfig{
			BaseURL:           "http://localhost:11434",
			RequestTimeoutSec: 600,
			ProbeTimeoutSec:   5,
			StreamGenerate:    true,
		},
		Benchmark: BenchmarkConfig{
			Models: []string{
				"llama3.2:1b",
				"llama3.2:3b",
				"qwen2.5:3b",
				"mistral:7b",
			},
			Prompts:          DefaultPrompts(),
			DefaultRuns:      3,
			RunOptions:       []int{1, 2, 3, 5, 10},
			MaxRuns:          10,
			FailureThreshold: 3,
			UnloadBeforeRun:  true,
			PullMissing:      false,
		},
		System: SystemConfig{},
		Persistence: PersistenceConfig{
			Backend:          "file",
			DataDir:          "/var/lib/benchfox",
			FlushIntervalSec: 60,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 3 * * *",
			Runs:    3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultPrompts returns the built-in prompt catalog. Complexity reads as
// prompt length then response length.
func DefaultPrompts() []PromptConfig {
	return []PromptConfig{
		{
			ID:          "quick_qa",
			Name:        "Quick Q&A",
			Category:    "Factual",
			Icon:        "[QA]",
			Description: "Tests TTFT and cold start performance",
			Complexity:  "short_short",
			Prompt:      "What is recursion in programming? Give a brief explanation.",
		},
		{
			ID:          "code_generation",
			Name:        "Code Generation",
			Category:    "Coding",
			Icon:        "[CODE]",
			Description: "Tests sustained generation performance",
			Complexity:  "short_long",
			Prompt:      "Write a Python function that finds the longest palindrome substring in a given string. Include detailed comments explaining the algorithm and handle edge cases.",
		},
		{
			ID:          "creative_writing",
			Name:        "Creative Writing",
			Category:    "Creative",
			Icon:        "[WRITE]",
			Description: "Tests long output generation",
			Complexity:  "short_long",
			Prompt:      "Write a short story (approximately 300 words) about a time traveler who accidentally changes a small detail in history and must deal with the unexpected consequences.",
		},
		{
			ID:          "reasoning",
			Name:        "Multi-Step Reasoning",
			Category:    "Analytical",
			Icon:        "[MATH]",
			Description: "Tests computational reasoning",
			Complexity:  "short_medium",
			Prompt:      "A train leaves Chicago at 3:00 PM traveling east at 60 mph. Another train leaves New York at 4:00 PM traveling west at 80 mph. The cities are 800 miles apart. When and where will the trains meet? Show your work step by step.",
		},
		{
			ID:          "analysis",
			Name:        "Detailed Analysis",
			Category:    "Analytical",
			Icon:        "[ANALYZE]",
			Description: "Tests analytical processing",
			Complexity:  "short_long",
			Prompt:      "Compare and contrast the bubble sort and merge sort algorithms. Discuss their time complexity (best, average, worst case), space complexity, stability, and practical use cases. When would you choose one over the other?",
		},
	}
}
