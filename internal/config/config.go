package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramPollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT,default=60"`

	DBDriver          string        `env:"DB_DRIVER,default=sqlite"`
	DBHost            string        `env:"DB_HOST,default=localhost"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER,default=robowatch"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME,default=robowatch"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBSQLitePath      string        `env:"DB_SQLITE_PATH,default=data/alert.db"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	// Coordinator order book endpoints, fetched through Tor.
	CoordinatorURLs []string      `env:"COORDINATOR_URLS,default=http://ngdk7ocdzmz5kzsysa3om6du7ycj2evxp2f2olfkyq37htx3gllwp2yd.onion/api/book/?format=json,http://satstraoq35jffvkgpfoqld32nzw2siuvowanruindbfojowpwsjdgad.onion/api/book/?format=json,http://4t4jxmivv6uqej6xzx2jx3fxh75gtt65v3szjoqmc4ugdlhipzdat6yd.onion/api/book/?format=json,http://mmhaqzuirth5rx7gl24d4773lknltjhik57k7ahec5iefktezv4b3uid.onion/api/book/?format=json"`
	TorProxyAddr    string        `env:"TOR_PROXY_ADDR,default=127.0.0.1:9050"`
	FetchInterval   time.Duration `env:"FETCH_INTERVAL,default=60s"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT,default=90s"`
	FetchMaxRetries uint64        `env:"FETCH_MAX_RETRIES,default=2"`
	FetchRate       float64       `env:"FETCH_RATE,default=1"`

	OrderbookDir   string `env:"ORDERBOOK_DIR,default=data/orderbook"`
	CurrencyPath   string `env:"CURRENCY_PATH,default=data/currency.json"`
	FederationPath string `env:"FEDERATION_PATH,default=data/federation.json"`

	MatchInterval      time.Duration `env:"MATCH_INTERVAL,default=120s"`
	DeliveryInterval   time.Duration `env:"DELIVERY_INTERVAL,default=60s"`
	DeliveryRate       float64       `env:"DELIVERY_RATE,default=20"`
	DeliveryMaxRetries uint64        `env:"DELIVERY_MAX_RETRIES,default=3"`

	AlertTTL            time.Duration `env:"ALERT_TTL,default=168h"`
	AlertExpiryInterval time.Duration `env:"ALERT_EXPIRY_INTERVAL,default=1h"`

	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
