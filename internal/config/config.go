package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
	Job      JobConfig      `mapstructure:"job" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// CacheConfig contains the Redis cache settings.
type CacheConfig struct {
	RedisAddr string `mapstructure:"redis_addr" validate:"required"`
	// KeyPrefix namespaces all cache keys, e.g. "taskboard:".
	KeyPrefix string `mapstructure:"key_prefix"`
	// TTLSeconds bounds cache staleness for task and list entries.
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"required,gt=0"`
}

// JobConfig contains settings for the background job runner and the
// periodic schedules.
type JobConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size" validate:"required,gt=0"`
	MaxAttempts         int `mapstructure:"max_attempts" validate:"required,gt=0"`
	RetryBackoffSeconds int `mapstructure:"retry_backoff_seconds" validate:"required,gt=0"`
	StuckJobAgeMinutes  int `mapstructure:"stuck_job_age_minutes" validate:"required,gt=0"`

	// ArchiveThresholdDays is the minimum age, in days since completion,
	// before a completed task becomes archivable.
	ArchiveThresholdDays int `mapstructure:"archive_threshold_days" validate:"required,gt=0"`

	// Periodic schedule intervals, in minutes. Zero disables a schedule.
	CleanupIntervalMinutes      int `mapstructure:"cleanup_interval_minutes"`
	SummaryIntervalMinutes      int `mapstructure:"summary_interval_minutes"`
	OverdueCheckIntervalMinutes int `mapstructure:"overdue_check_interval_minutes"`
}

// MailConfig contains the outbound email settings. When Enabled is false
// composed messages are logged instead of delivered, which is the default
// for local development.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPAddr string `mapstructure:"smtp_addr" validate:"required_if=Enabled true"`
	From     string `mapstructure:"from" validate:"required_if=Enabled true"`
}
