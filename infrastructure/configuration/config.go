package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
	Platforms   Platforms   `json:"platforms"`
	Scheduler   Scheduler   `json:"scheduler"`
	Publish     Publish     `json:"publish"`
	BlobStore   BlobStore   `json:"blobStore"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
	// ConnectionsURL is the dashboard page the OAuth callback redirects back to.
	ConnectionsURL string   `json:"connectionsURL"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
	// CredentialStore selects the backend for platform connections: psql (default) or mssql.
	CredentialStore string `json:"credentialStore"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type RedisClient struct {
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	Password     string        `json:"password"`
	DatabaseName string        `json:"databaseName"`
	Username     string        `json:"username"`
	NonceTTL     time.Duration `json:"nonceTTL"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type Logger struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// OAuth holds the platform OAuth clients and token lifecycle tuning.
type OAuth struct {
	Video        OAuthClient   `json:"video"`
	Page         OAuthClient   `json:"page"`
	Photo        OAuthClient   `json:"photo"`
	StateTTL     time.Duration `json:"stateTTL"`
	Timeout      time.Duration `json:"timeout"`
	RefreshSkew  time.Duration `json:"refreshSkew"`
	ExtendWindow time.Duration `json:"extendWindow"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
	AuthURL      string   `json:"authURL"`
	TokenURL     string   `json:"tokenURL"`
}

type Platforms struct {
	Video VideoAPI `json:"video"`
	Graph GraphAPI `json:"graph"`
}

type VideoAPI struct {
	APIBaseURL    string `json:"apiBaseURL"`
	UploadBaseURL string `json:"uploadBaseURL"`
}

// GraphAPI configures the page and photo platforms, which share one graph API.
type GraphAPI struct {
	Version      string `json:"version"`
	BaseURL      string `json:"baseURL"`
	VideoBaseURL string `json:"videoBaseURL"`
	DialogURL    string `json:"dialogURL"`
	PageID       string `json:"pageId"`
}

type Scheduler struct {
	Enabled     bool          `json:"enabled"`
	Interval    time.Duration `json:"interval"`
	BatchSize   int           `json:"batchSize"`
	Concurrency int           `json:"concurrency"`
	CronSecret  string        `json:"cronSecret"`
}

type Publish struct {
	Timeout             time.Duration `json:"timeout"`
	RequestsPerSecond   float64       `json:"requestsPerSecond"`
	Burst               int           `json:"burst"`
	VideoUploadAttempts int           `json:"videoUploadAttempts"`
	PhotoPollInterval   time.Duration `json:"photoPollInterval"`
	PhotoMaxPolls       int           `json:"photoMaxPolls"`
}

type BlobStore struct {
	BaseURL       string `json:"baseURL"`
	PublicBaseURL string `json:"publicBaseURL"`
	Token         string `json:"token"`
}

var C Config

func init() {
	LoadEnv(".env", "config.env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initOAuth(&C)
	initPlatforms(&C)
	initScheduler(&C)
	initPublish(&C)
	logger.Configure(C.Logger.Level, C.Logger.Format)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "social_publisher")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "localhost")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "postgres")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")
	C.Database.Psql.SSLMode = getConfigValue(C.Database.Psql.SSLMode, "DB_SSLMODE", "disable")

	C.Database.MySql.Name = getConfigValue(C.Database.MySql.Name, "MYSQL_DB_NAME", "")
	C.Database.MySql.Host = getConfigValue(C.Database.MySql.Host, "MYSQL_HOST", "")
	C.Database.MySql.Port = getConfigValue(C.Database.MySql.Port, "MYSQL_PORT", "3306")
	C.Database.MySql.User = getConfigValue(C.Database.MySql.User, "MYSQL_USER", "")
	C.Database.MySql.Password = getConfigValue(C.Database.MySql.Password, "MYSQL_PASSWORD", "")

	// Azure SQL in production; only used when credentialStore is mssql.
	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "sa")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "social_publisher")
	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")

	C.Database.CredentialStore = strings.ToLower(getConfigValue(C.Database.CredentialStore, "CREDENTIAL_STORE", "psql"))

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "localhost")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
	if C.RedisClient.NonceTTL == 0 {
		C.RedisClient.NonceTTL = time.Hour
	}
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// APP_PORT -> PORT -> config -> 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			C.App.TLSEnabled = b
		}
	}
	C.App.TLSCertFile = getConfigValue(C.App.TLSCertFile, "TLS_CERT_FILE", "")
	C.App.TLSKeyFile = getConfigValue(C.App.TLSKeyFile, "TLS_KEY_FILE", "")
	C.App.ConnectionsURL = getConfigValue(C.App.ConnectionsURL, "CONNECTIONS_URL", "http://localhost:3000/settings/connections")
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication and OAuth state signing will fail. Provide SECRET_KEY via environment.")
	}
}

func initOAuth(C *Config) {
	if C.OAuth.StateTTL == 0 {
		C.OAuth.StateTTL = 10 * time.Minute
	}
	if C.OAuth.Timeout == 0 {
		C.OAuth.Timeout = 15 * time.Second
	}
	if C.OAuth.RefreshSkew == 0 {
		C.OAuth.RefreshSkew = 5 * time.Minute
	}
	if C.OAuth.ExtendWindow == 0 {
		C.OAuth.ExtendWindow = 7 * 24 * time.Hour
	}
}

func initPlatforms(C *Config) {
	if C.Platforms.Graph.Version == "" {
		C.Platforms.Graph.Version = "v19.0"
	}
	if C.Platforms.Graph.BaseURL == "" {
		C.Platforms.Graph.BaseURL = "https://graph.facebook.com/" + C.Platforms.Graph.Version
	}
	if C.Platforms.Graph.VideoBaseURL == "" {
		C.Platforms.Graph.VideoBaseURL = "https://graph-video.facebook.com/" + C.Platforms.Graph.Version
	}
	if C.Platforms.Graph.DialogURL == "" {
		C.Platforms.Graph.DialogURL = "https://www.facebook.com/" + C.Platforms.Graph.Version + "/dialog/oauth"
	}
	C.Platforms.Graph.PageID = getConfigValue(C.Platforms.Graph.PageID, "PAGE_PLATFORM_PAGE_ID", "")
	if C.Platforms.Video.UploadBaseURL == "" {
		C.Platforms.Video.UploadBaseURL = "https://www.googleapis.com"
	}
}

func initScheduler(C *Config) {
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			C.Scheduler.Enabled = b
		}
	}
	if C.Scheduler.Interval == 0 {
		C.Scheduler.Interval = time.Minute
	}
	if C.Scheduler.BatchSize <= 0 {
		C.Scheduler.BatchSize = 10
	}
	if C.Scheduler.Concurrency <= 0 {
		C.Scheduler.Concurrency = 4
	}
	C.Scheduler.CronSecret = getConfigValue(C.Scheduler.CronSecret, "CRON_SECRET", "")
}

func initPublish(C *Config) {
	if C.Publish.Timeout == 0 {
		C.Publish.Timeout = 10 * time.Minute
	}
	if C.Publish.RequestsPerSecond <= 0 {
		C.Publish.RequestsPerSecond = 2
	}
	if C.Publish.Burst <= 0 {
		C.Publish.Burst = 2
	}
	if C.Publish.VideoUploadAttempts <= 0 {
		C.Publish.VideoUploadAttempts = 3
	}
	if C.Publish.PhotoPollInterval == 0 {
		C.Publish.PhotoPollInterval = 2 * time.Second
	}
	if C.Publish.PhotoMaxPolls <= 0 {
		C.Publish.PhotoMaxPolls = 30
	}
	C.BlobStore.BaseURL = getConfigValue(C.BlobStore.BaseURL, "BLOB_BASE_URL", "")
	C.BlobStore.PublicBaseURL = getConfigValue(C.BlobStore.PublicBaseURL, "BLOB_PUBLIC_BASE_URL", C.BlobStore.BaseURL)
	C.BlobStore.Token = getConfigValue(C.BlobStore.Token, "BLOB_TOKEN", "")
}
