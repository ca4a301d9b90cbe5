package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Token    TokenConfig
	Sync     SyncConfig
	Log      LogConfig
	Redis    RedisConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type TokenConfig struct {
	MasterKey       string // 令牌加密主密钥（按purpose派生子密钥）
	PurposeTokenTTL string // 单用途令牌有效期，如 "30m"
	Verbose401      bool   // 401响应是否携带失败原因（仅调试环境开启）
}

type SyncConfig struct {
	MaxItemAllowed         int      // 单次请求最大条目数
	DefaultPageSize        int      // 默认分页大小
	MinClientVersion       int      // 低于该版本的客户端返回410
	AllowAnonymousActions  []string // 允许匿名访问的 "controller.action" 列表
	SkipTenantFilterTables []string // 不做租户过滤的表
	AllowGetAllTables      []string // 允许GetAll全量拉取的表
	TombstoneRetentionDays int      // 墓碑记录保留天数，0表示不清理
	TombstoneCleanupCron   string   // 墓碑清理任务的cron表达式
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int    // MB
	MaxBackups int    // 保留的备份文件数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩
	Format     string // json 或 text
}

type RedisConfig struct {
	Enabled  bool   // 是否启用Redis版本计数器
	Host     string // Redis主机地址
	Port     int    // Redis端口
	Password string // Redis密码
	DB       int    // Redis数据库编号
	Prefix   string // 键前缀
}

type CORSConfig struct {
	AllowOrigins     []string // 允许的源
	AllowMethods     []string // 允许的HTTP方法
	AllowHeaders     []string // 允许的请求头
	ExposeHeaders    []string // 暴露的响应头
	AllowCredentials bool     // 是否允许携带凭证
	MaxAge           int      // 预检请求缓存时间（小时）
}

// 获取环境变量，如果不存在则使用默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 获取环境变量转换为int
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 获取环境变量转换为bool
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// 获取环境变量转换为字符串数组（逗号分隔）
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("SERVER_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "syncgate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Token: TokenConfig{
			MasterKey:       getEnv("TOKEN_MASTER_KEY", "syncgate-token-master-key-change-me"),
			PurposeTokenTTL: getEnv("TOKEN_PURPOSE_TTL", "30m"),
			Verbose401:      getEnvAsBool("TOKEN_VERBOSE_401", false),
		},
		Sync: SyncConfig{
			MaxItemAllowed:         getEnvAsInt("SYNC_MAX_ITEM_ALLOWED", 1000),
			DefaultPageSize:        getEnvAsInt("SYNC_DEFAULT_PAGE_SIZE", 50),
			MinClientVersion:       getEnvAsInt("SYNC_MIN_CLIENT_VERSION", 0),
			AllowAnonymousActions:  getEnvAsStringArray("SYNC_ALLOW_ANONYMOUS_ACTIONS", []string{}),
			SkipTenantFilterTables: getEnvAsStringArray("SYNC_SKIP_TENANT_FILTER_TABLES", []string{}),
			AllowGetAllTables:      getEnvAsStringArray("SYNC_ALLOW_GETALL_TABLES", []string{}),
			TombstoneRetentionDays: getEnvAsInt("SYNC_TOMBSTONE_RETENTION_DAYS", 0),
			TombstoneCleanupCron:   getEnv("SYNC_TOMBSTONE_CLEANUP_CRON", "0 3 * * *"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "syncgate"),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsStringArray("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsStringArray("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			AllowHeaders:     getEnvAsStringArray("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Requested-With", "token", "request", "response", "client-version"}),
			ExposeHeaders:    getEnvAsStringArray("CORS_EXPOSE_HEADERS", []string{"Content-Length", "Content-Type"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 12),
		},
	}

	return config, nil
}
