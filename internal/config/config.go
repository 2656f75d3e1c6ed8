package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Auth     AuthConfig     `mapstructure:"Auth"`
	Storage  StorageConfig  `mapstructure:"Storage"`
}

type ServerConfig struct {
	Port    string `mapstructure:"Port"`
	BaseURL string `mapstructure:"BaseURL"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type AuthConfig struct {
	// Единый системный пароль, открывающий доступ к сервису
	SystemPassword string `mapstructure:"SystemPassword"`
	// Срок жизни токена системного входа, дней
	TokenExpiresDays int `mapstructure:"TokenExpiresDays"`
	// Срок жизни cookie пространства, дней
	SpaceCookieDays int `mapstructure:"SpaceCookieDays"`
}

type StorageConfig struct {
	// Срок жизни пространства и файла, часов
	SpaceExpiresHours int `mapstructure:"SpaceExpiresHours"`
	FileExpiresHours  int `mapstructure:"FileExpiresHours"`
	// Максимальное продление от момента создания, дней
	MaxExtendDays int `mapstructure:"MaxExtendDays"`
	// Интервалы фоновой очистки
	CleanupIntervalMinutes    int `mapstructure:"CleanupIntervalMinutes"`
	TokenCleanupIntervalHours int `mapstructure:"TokenCleanupIntervalHours"`
	// Максимальный размер загружаемого файла, байт
	MaxFileSizeBytes int64 `mapstructure:"MaxFileSizeBytes"`
	// Списки расширений через запятую
	DangerousExtensions string `mapstructure:"DangerousExtensions"`
	ImageExtensions     string `mapstructure:"ImageExtensions"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Auth.SystemPassword", "SYSTEM_PASSWORD")

	// Читаем конфигурацию из файла
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Проверяем переменные окружения напрямую если конфигурация неполная
	if cfg.Database.Host == "" {
		cfg.Database.Host = v.GetString("DATABASE_HOST")
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = v.GetString("DATABASE_PORT")
	}
	if cfg.Database.User == "" {
		cfg.Database.User = v.GetString("DATABASE_USER")
	}
	if cfg.Database.Password == "" {
		cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = v.GetString("DATABASE_NAME")
	}
	if cfg.Auth.SystemPassword == "" {
		cfg.Auth.SystemPassword = v.GetString("SYSTEM_PASSWORD")
	}

	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	if cfg.Auth.SystemPassword == "" {
		return nil, fmt.Errorf("system password is not configured")
	}

	// Установка значений по умолчанию
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "3333"
	}
	if cfg.Auth.TokenExpiresDays == 0 {
		cfg.Auth.TokenExpiresDays = 7
	}
	if cfg.Auth.SpaceCookieDays == 0 {
		cfg.Auth.SpaceCookieDays = 1
	}
	if cfg.Storage.SpaceExpiresHours == 0 {
		cfg.Storage.SpaceExpiresHours = 24
	}
	if cfg.Storage.FileExpiresHours == 0 {
		cfg.Storage.FileExpiresHours = 24
	}
	if cfg.Storage.MaxExtendDays == 0 {
		cfg.Storage.MaxExtendDays = 7
	}
	if cfg.Storage.CleanupIntervalMinutes == 0 {
		cfg.Storage.CleanupIntervalMinutes = 10
	}
	if cfg.Storage.TokenCleanupIntervalHours == 0 {
		cfg.Storage.TokenCleanupIntervalHours = 24
	}
	if cfg.Storage.MaxFileSizeBytes == 0 {
		cfg.Storage.MaxFileSizeBytes = 20 * 1024 * 1024
	}
	if cfg.Storage.DangerousExtensions == "" {
		cfg.Storage.DangerousExtensions = "exe,sh,bat,cmd,com,scr,vbs,ps1"
	}
	if cfg.Storage.ImageExtensions == "" {
		cfg.Storage.ImageExtensions = "png,jpg,jpeg,gif,bmp,webp"
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// ExtensionSet разбирает список расширений из конфигурации в множество.
func ExtensionSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, ext := range strings.Split(list, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}
