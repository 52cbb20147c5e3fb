package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration settings for the application.
type Config struct {
	Env             string         // Env is the current environment: local, development, production.
	Database        PostgresConfig // Database holds the postgres database configuration.
	Telegram        TelegramConfig // Telegram holds the bot transport configuration.
	RedisAddr       string         // RedisAddr is the redis server address.
	HTTPPort        int            // HTTPPort is the staff-facing REST API port.
	MonitoringPort  int            // MonitoringPort serves /healthz and /metrics.
	Photo           PhotoConfig    // Photo holds the photo normalization settings.
	FundTable       map[string]float64
	BootstrapAdmins []int64 // BootstrapAdmins always have admin rights, independent of the allow-list.
	NotifyChatIDs   []int64 // NotifyChatIDs receive report summary messages.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
	MinConns int32  // MinConns keeps this many pool connections warm.
}

// TelegramConfig holds the bot token and transport mode. In webhook mode
// inbound updates carry the secret token and are rejected before dispatch
// when it does not match.
type TelegramConfig struct {
	Token         string
	Mode          string // polling or webhook
	WebhookURL    string
	WebhookListen string
	WebhookSecret string
	PollerTimeout time.Duration
}

// PhotoConfig holds the car photo normalization settings.
type PhotoConfig struct {
	Dir          string // Dir is where normalized photos are stored.
	MaxDimension int    // MaxDimension bounds both axes of the stored photo.
	Quality      int    // Quality is the JPEG re-encode quality.
}

// MustLoad loads the configuration from a YAML file and returns a Config struct.
//
// The fund bucket table is deployment configuration, not code: bucket values
// and membership shifted between revisions of the business rule, so the file
// ships every known revision under fund_tables and fund_table names the
// active one.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		panic("config path is empty")
	}

	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		panic("config error: " + err.Error())
	}

	defPollerTimeout := 10
	defMaxDimension := 1200
	defQuality := 85

	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("postgres.min_conns", 3)
	viper.SetDefault("telegram.timeout", time.Duration(defPollerTimeout*int(time.Second)))
	viper.SetDefault("telegram.mode", "polling")
	viper.SetDefault("telegram.webhook_listen", ":8443")
	viper.SetDefault("http.port", 8081)
	viper.SetDefault("monitoring.port", 8080)
	viper.SetDefault("photo.dir", "media/car_photos")
	viper.SetDefault("photo.max_dimension", defMaxDimension)
	viper.SetDefault("photo.quality", defQuality)

	return &Config{
		Env: viper.GetString("env"),
		Database: PostgresConfig{
			Host:     viper.GetString("postgres.host"),
			Port:     viper.GetString("postgres.port"),
			User:     viper.GetString("postgres.user"),
			Password: viper.GetString("postgres.password"),
			Name:     viper.GetString("postgres.db_name"),
			MinConns: viper.GetInt32("postgres.min_conns"),
		},
		Telegram: TelegramConfig{
			Token:         viper.GetString("telegram.token"),
			Mode:          viper.GetString("telegram.mode"),
			WebhookURL:    viper.GetString("telegram.webhook_url"),
			WebhookListen: viper.GetString("telegram.webhook_listen"),
			WebhookSecret: viper.GetString("telegram.webhook_secret"),
			PollerTimeout: viper.GetDuration("telegram.timeout"),
		},
		RedisAddr:      viper.GetString("redis_addr"),
		HTTPPort:       viper.GetInt("http.port"),
		MonitoringPort: viper.GetInt("monitoring.port"),
		Photo: PhotoConfig{
			Dir:          viper.GetString("photo.dir"),
			MaxDimension: viper.GetInt("photo.max_dimension"),
			Quality:      viper.GetInt("photo.quality"),
		},
		FundTable:       loadFundTable(viper.GetString("fund_table")),
		BootstrapAdmins: toInt64Slice(viper.GetIntSlice("bootstrap_admins")),
		NotifyChatIDs:   toInt64Slice(viper.GetIntSlice("notify.chat_ids")),
	}
}

// loadFundTable resolves the active fund bucket revision by name.
// An unknown or empty name yields an empty table, which leaves fund unset
// on every order.
func loadFundTable(name string) map[string]float64 {
	table := make(map[string]float64)
	if name == "" {
		return table
	}

	raw := viper.GetStringMap("fund_tables." + name)
	for className, amount := range raw {
		switch v := amount.(type) {
		case int:
			table[className] = float64(v)
		case int64:
			table[className] = float64(v)
		case float64:
			table[className] = v
		}
	}

	return table
}

func toInt64Slice(values []int) []int64 {
	result := make([]int64, 0, len(values))
	for _, v := range values {
		result = append(result, int64(v))
	}
	return result
}
