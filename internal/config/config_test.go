package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Matching: MatchingConfig{
			Engine:      "tfidf",
			NGramLength: 3,
			TopK:        10,
			Workers:     4,
		},
		Anomaly: AnomalyConfig{
			WeekendDays:   []int{4, 5},
			AbnormalHours: []int{20, 5},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("unknown engine", func(t *testing.T) {
		cfg := validConfig()
		cfg.Matching.Engine = "soundex"
		assert.Error(t, cfg.Validate())
	})

	t.Run("n-gram out of range", func(t *testing.T) {
		for _, n := range []int{0, 7} {
			cfg := validConfig()
			cfg.Matching.NGramLength = n
			assert.Error(t, cfg.Validate(), "n-gram %d", n)
		}
	})

	t.Run("non-positive top-k", func(t *testing.T) {
		cfg := validConfig()
		cfg.Matching.TopK = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("weekend day bounds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Anomaly.WeekendDays = []int{7}
		assert.Error(t, cfg.Validate())

		cfg.Anomaly.WeekendDays = []int{1, 2, 3}
		assert.Error(t, cfg.Validate())

		cfg.Anomaly.WeekendDays = []int{5, 5}
		assert.Error(t, cfg.Validate())

		cfg.Anomaly.WeekendDays = []int{6}
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidateHourWindow(t *testing.T) {
	t.Run("single hour", func(t *testing.T) {
		assert.NoError(t, ValidateHourWindow([]int{22}))
	})

	t.Run("same-day ascending window", func(t *testing.T) {
		assert.NoError(t, ValidateHourWindow([]int{1, 4}))
	})

	t.Run("PM-to-AM window wraps", func(t *testing.T) {
		assert.NoError(t, ValidateHourWindow([]int{20, 5}))
	})

	t.Run("equal pair is allowed as exact hour", func(t *testing.T) {
		assert.NoError(t, ValidateHourWindow([]int{3, 3}))
	})

	t.Run("reversed same-day range is rejected", func(t *testing.T) {
		assert.Error(t, ValidateHourWindow([]int{10, 5}))
	})

	t.Run("out-of-range hours are rejected", func(t *testing.T) {
		assert.Error(t, ValidateHourWindow([]int{24}))
		assert.Error(t, ValidateHourWindow([]int{-1, 5}))
	})

	t.Run("too many hours are rejected", func(t *testing.T) {
		assert.Error(t, ValidateHourWindow([]int{1, 2, 3}))
		assert.Error(t, ValidateHourWindow(nil))
	})
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Matching.Engine)
	assert.Equal(t, 3, cfg.Matching.NGramLength)
	assert.Equal(t, 10, cfg.Matching.TopK)
	assert.Equal(t, 0.6, cfg.Matching.CloseMatchThreshold)
	assert.Equal(t, 2.0, cfg.Matching.VendorCompositeThreshold)
	assert.Equal(t, 1.5, cfg.Matching.EmployeeCompositeThreshold)
	assert.Equal(t, []int{4, 5}, cfg.Anomaly.WeekendDays)
	assert.Equal(t, []int{20, 5}, cfg.Anomaly.AbnormalHours)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VMF_NGRAM_LENGTH", "2")
	t.Setenv("VMF_WEEKEND_DAYS", "5,6")
	t.Setenv("VMF_ABNORMAL_HOURS", "22")
	t.Setenv("VMF_MATCH_ENGINE", "levenshtein")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Matching.NGramLength)
	assert.Equal(t, []int{5, 6}, cfg.Anomaly.WeekendDays)
	assert.Equal(t, []int{22}, cfg.Anomaly.AbnormalHours)
	assert.Equal(t, "levenshtein", cfg.Matching.Engine)
}
