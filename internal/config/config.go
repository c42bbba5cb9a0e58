package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Sbis     *sbisConfig
	Sheets   *sheetsConfig
	Service  *svcConfig
	Database *dbConfig
}

type sbisConfig struct {
	Login          string        `envconfig:"SBIS_LOGIN" default:""`
	Password       string        `envconfig:"SBIS_PASSWORD" default:""`
	AuthURL        string        `envconfig:"SBIS_AUTH_URL" default:"https://online.sbis.ru/auth/service/"`
	SearchURL      string        `envconfig:"SBIS_SEARCH_URL" default:"https://zakupki.sbis.ru/contract/public/api/v2/Search/GetPurchase"`
	SessionTTL     time.Duration `envconfig:"SBIS_SESSION_TTL" default:"10m"`
	RequestTimeout time.Duration `envconfig:"SBIS_REQUEST_TIMEOUT" default:"30s"`
}

type sheetsConfig struct {
	SpreadsheetID   string `envconfig:"SHEETS_SPREADSHEET_ID" default:""`
	CredentialsFile string `envconfig:"SHEETS_CREDENTIALS_FILE" default:"service-account.json"`
	SummarySheet    string `envconfig:"SHEETS_SUMMARY_SHEET" default:"Tenders"`
	NoProductsSheet string `envconfig:"SHEETS_NO_PRODUCTS_SHEET" default:"Tenders (no products)"`
	WorklistSheet   string `envconfig:"SHEETS_WORKLIST_SHEET" default:"Worklist"`
}

type svcConfig struct {
	Address      string        `envconfig:"TENDER_SYNC_ADDRESS" default:":10000"`
	LogLevel     string        `envconfig:"TENDER_SYNC_LOG_LEVEL" default:"info"`
	BatchLimit   int           `envconfig:"TENDER_SYNC_BATCH_LIMIT" default:"190"`
	WriteDelay   time.Duration `envconfig:"TENDER_SYNC_WRITE_DELAY" default:"2s"`
	SyncInterval time.Duration `envconfig:"TENDER_SYNC_INTERVAL" default:"1h"`
	RefreshAfter time.Duration `envconfig:"TENDER_SYNC_REFRESH_AFTER" default:"336h"`
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"tender-sync.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a fresh configuration, bypassing the singleton. Used by tests.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		panic(err)
	}
	return cfg
}
