package config

type StoreConfig interface {
	GetStoreType() string
	GetRedisConfig() RedisConfig
	GetSQLitePath() string
	GetMappingsFile() string
}

const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
	StoreTypeSQLite = "sqlite"
)

type RedisConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

type Store struct {
	StoreType      string `env:"STORE_TYPE" envDefault:"memory"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisUsername  string `env:"REDIS_USERNAME"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"bridge:"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"bridge.db"`
	MappingsFile   string `env:"MAPPINGS_FILE"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreType() string {
	return s.StoreType
}

func (s Store) GetRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      s.RedisAddr,
		Username:  s.RedisUsername,
		Password:  s.RedisPassword,
		DB:        s.RedisDB,
		KeyPrefix: s.RedisKeyPrefix,
	}
}

func (s Store) GetSQLitePath() string {
	return s.SQLitePath
}

// GetMappingsFile is an optional YAML file of identity mappings loaded at start.
func (s Store) GetMappingsFile() string {
	return s.MappingsFile
}
