package config

import "testing"

func TestParseAPIKeys(t *testing.T) {
	t.Setenv("GOOGLE_API_KEYS", "k1, k2")
	keys := parseAPIKeys()
	if len(keys) != 2 || keys[0] != "k1" || keys[1] != "k2" {
		t.Fatalf("unexpected keys: %+v", keys)
	}

	t.Setenv("GOOGLE_API_KEYS", "")
	t.Setenv("GOOGLE_API_KEY", "single")
	keys = parseAPIKeys()
	if len(keys) != 1 || keys[0] != "single" {
		t.Fatalf("unexpected single key: %+v", keys)
	}
}

func TestSplitKeys(t *testing.T) {
	if keys := splitKeys("a,b c\td\n"); len(keys) != 4 {
		t.Fatalf("unexpected keys length: %d", len(keys))
	}
}

func TestModelForTask(t *testing.T) {
	cfg := GeminiConfig{DefaultModel: "gemini-3-default"}
	if cfg.ModelForTask("judge") != "gemini-3-default" {
		t.Fatalf("expected default model when judge model unset")
	}
	cfg.JudgeModel = "gemini-3-judge"
	if cfg.ModelForTask("judge") != "gemini-3-judge" {
		t.Fatalf("expected judge model")
	}
	if cfg.ModelForTask("other") != "gemini-3-default" {
		t.Fatalf("unexpected model for unknown task")
	}
}

func TestTemperatureForModel(t *testing.T) {
	cfg := GeminiConfig{Temperature: 0.5}
	if cfg.TemperatureForModel("gemini-3-test") != 1.0 {
		t.Fatalf("expected min temperature for gemini3")
	}
	if cfg.TemperatureForModel("other-model") != 0.5 {
		t.Fatalf("unexpected temperature")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("GAME_INITIAL_COINS", "")
	t.Setenv("JUDGE_MAX_TOKENS", "")
	cfg := FromEnv()
	if cfg.Game.InitialCoins != 100 || cfg.Game.AskCost != 1 || cfg.Game.HintCost != 10 || cfg.Game.SkipCost != 20 {
		t.Fatalf("unexpected economy defaults: %+v", cfg.Game)
	}
	if cfg.Game.MinReward != 10 || cfg.Game.MaxReward != 80 || cfg.Game.RewardPerCoinLeftRatio != 0.5 {
		t.Fatalf("unexpected reward defaults: %+v", cfg.Game)
	}
	if cfg.Judge.MaxOutputTokens != 128 || cfg.Judge.PromptVariant != "default" {
		t.Fatalf("unexpected judge defaults: %+v", cfg.Judge)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty variant", func(c *Config) { c.Judge.PromptVariant = " " }},
		{"negative cost", func(c *Config) { c.Game.HintCost = -1 }},
		{"reward range", func(c *Config) { c.Game.MinReward = 90 }},
		{"port", func(c *Config) { c.HTTP.Port = 0 }},
		{"api key required", func(c *Config) { c.HTTPAuth.Required = true; c.HTTPAuth.APIKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	if maskSecret("") != "<missing>" {
		t.Fatalf("unexpected mask for empty")
	}
	if maskSecret("abcdef") != "ab***ef" {
		t.Fatalf("unexpected mask: %s", maskSecret("abcdef"))
	}
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("TS_TEST_INT", " 42 ")
	t.Setenv("TS_TEST_BAD_INT", "forty")
	t.Setenv("TS_TEST_NEG", "-3")
	t.Setenv("TS_TEST_FLOAT", "0.25")
	t.Setenv("TS_TEST_ON", "on")
	t.Setenv("TS_TEST_NO", "No")
	t.Setenv("TS_TEST_MAYBE", "maybe")

	if got := getEnvInt("TS_TEST_INT", 1); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := getEnvInt("TS_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("expected default on parse failure, got %d", got)
	}
	if got := getEnvNonNegativeInt("TS_TEST_NEG", 5); got != 0 {
		t.Fatalf("expected negative to clamp to 0, got %d", got)
	}
	if got := getEnvFloat("TS_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if got := getEnvString("TS_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected default string, got %q", got)
	}

	flags := []struct {
		key  string
		def  bool
		want bool
	}{
		{"TS_TEST_ON", false, true},
		{"TS_TEST_NO", true, false},
		{"TS_TEST_MAYBE", true, true},
		{"TS_TEST_UNSET", false, false},
	}
	for _, tt := range flags {
		if got := getEnvBool(tt.key, tt.def); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.key, tt.want, got)
		}
	}
}
