package container

// Options configures the server process. Every field can be set from the
// command line or a SERVICE_* environment variable.
type Options struct {
	Port           int    `default:"8888"                                   help:"Port to listen on"                                 short:"p"`
	BaseURL        string `default:""                                       help:"Public base URL for short links (defaults to localhost:port)"`
	Store          string `default:"memory"                                 help:"Link store backend: memory, redis or postgres"     short:"s"`
	RedisAddr      string `default:"localhost:6379"                         help:"Redis server address"                              short:"r"`
	DatabaseURL    string `default:"postgres://localhost:5432/links"        help:"PostgreSQL connection string"`
	KeyScheme      string `default:"ledger"                                 help:"Generated key scheme: ledger or random"`
	KeyAttempts    int    `default:"5"                                      help:"Attempts to find a free generated key"`
	LedgerInterval string `default:"5s"                                     help:"Span of one ledger sequence unit"`
	LedgerGenesis  string `default:"2020-01-01T00:00:00Z"                   help:"RFC 3339 time of ledger sequence zero"`
	TokenMaxAge    string `default:"24h"                                    help:"Maximum accepted bearer token age (0 disables)"`
	Events         string `default:"memory"                                 help:"Lifecycle event transport: none, memory or redis"`
	LogFormat      string `default:"json"                                   help:"Log format: json or console"`

	// ConsumerGroup is only read by the consumer process.
	ConsumerGroup string `default:"audit" help:"Redis Streams consumer group"`
}
