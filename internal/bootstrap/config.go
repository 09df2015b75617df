package bootstrap

import (
	"reflect"
	"time"

	"github.com/spf13/viper"
)

const (
	TransportSocket = "socket"
	TransportRedis  = "redis"
)

type Config struct {
	ServerPort       string `mapstructure:"SERVER_PORT"`
	SocketUrl        string `mapstructure:"SOCKET_URL"`
	RequestTransport string `mapstructure:"REQUEST_TRANSPORT"`
	RedisUrl         string `mapstructure:"REDIS_URL"`
	RequestChannel   string `mapstructure:"REQUEST_CHANNEL"`
	MongoUri         string `mapstructure:"MONGO_URI"`
	MongoDatabase    string `mapstructure:"MONGO_DATABASE"`
	JournalRequests  bool   `mapstructure:"JOURNAL_REQUESTS"`
	ChartLoadDelayMs int    `mapstructure:"CHART_LOAD_DELAY_MS"`
	MinMainlinePlies int    `mapstructure:"MIN_MAINLINE_PLIES"`
	ChapterId        string `mapstructure:"CHAPTER_ID"`
	IsLocalCors      bool   `mapstructure:"LOCAL_CORS"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("REQUEST_TRANSPORT", TransportSocket)
	v.SetDefault("REQUEST_CHANNEL", "study:analysis:request")
	v.SetDefault("MONGO_DATABASE", "study_eval")
	v.SetDefault("JOURNAL_REQUESTS", false)
	v.SetDefault("CHART_LOAD_DELAY_MS", 800)
	v.SetDefault("MIN_MAINLINE_PLIES", 5)
	v.SetDefault("LOCAL_CORS", false)
}

// bindEnv registers every Config key, AutomaticEnv alone skips keys with
// neither a default nor a file entry.
func bindEnv(v *viper.Viper) error {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" {
			if err := v.BindEnv(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// Setup reads cfgPath, an .env file. Environment variables win over the file.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(cfgPath)
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) ChartLoadDelay() time.Duration {
	return time.Duration(c.ChartLoadDelayMs) * time.Millisecond
}
