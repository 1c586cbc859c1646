package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// HTTP server configuration
	Port      string
	JWTSecret string

	// Credential encryption
	TokenKey string

	// Publishing configuration
	RelayURL     string
	PlatformsDir string

	// Background automation configuration
	WorkerCount       int
	SchedulerInterval int
	InternalKey       string

	// Comment generation
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	// Optional distributed lock backend
	RedisAddr     string
	RedisPassword string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
