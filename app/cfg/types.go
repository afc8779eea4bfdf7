package cfg

type Cfg struct {
	// Persistence
	DBPath string

	// Application configuration
	CreatorsDir   string
	Port          string
	WorkerCount   int
	CheckInterval int
	APIAccessKey  string

	// Content source
	SourceBaseURL string
	SourceTokens  []string

	// Notification sink
	SinkBaseURL   string
	SinkToken     string
	SinkFileLimit int64

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
