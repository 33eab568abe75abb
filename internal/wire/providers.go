package wire

import (
	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/application/testrun"
	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/infrastructure/messaging"
	"refine-ai-api/internal/infrastructure/persistence/postgres"
	"refine-ai-api/internal/infrastructure/persistence/redis"
	"refine-ai-api/internal/interfaces/http/handler"
	"refine-ai-api/internal/interfaces/http/middleware"
	"refine-ai-api/internal/workflow/port"
	"refine-ai-api/internal/workflow/prompt"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient     *postgres.Client
	TxManager    *postgres.TxManager
	UserRepo     *postgres.UserRepository
	PromptRepo   *postgres.SavedPromptRepository
	TemplateRepo *postgres.PromptTemplateRepository
	SettingsRepo *postgres.UserSettingsRepository
}

// Toolkit 命令行工具使用的依赖
type Toolkit struct {
	Cache     *redis.Cache
	Generator *promptgen.Generator
	Runner    *testrun.Runner
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideSessionStore 提供向导会话存储
func ProvideSessionStore(client *redis.Client, cfg *config.Config) *redis.SessionStore {
	return redis.NewSessionStore(client, cfg.Wizard.SessionTTL)
}

// ProvideChangeFeed 提供资料库变更推送
func ProvideChangeFeed(redisClient *redis.Client, cfg *config.Config) *messaging.ChangeFeed {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 1000
	}
	return messaging.NewChangeFeed(redisClient.Redis(), int64(maxLen), cfg.Messaging.RedisStream.BlockTimeout)
}

// ProvideGenerator 提供提示生成器
func ProvideGenerator(cat *catalog.Catalog, registry *prompt.Registry, models port.ChatModelFactory, cache promptgen.ResultCache, cfg *config.Config) *promptgen.Generator {
	return promptgen.NewGenerator(cat, registry, models, cache, cfg.Generation)
}

// ProvideTestRunner 提供试运行器
func ProvideTestRunner(cat *catalog.Catalog, streamer testrun.Streamer, cfg *config.Config) *testrun.Runner {
	return testrun.NewRunner(cat, streamer, cfg.TestRun)
}

// ProvideHealthHandler 提供健康检查处理器，PostgreSQL 与 Redis 均为就绪条件
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rdb *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, map[string]handler.HealthChecker{
		"postgres": pg,
		"redis":    rdb,
	})
}

// ProvideJWTConfig 提供 JWT 配置
func ProvideJWTConfig(cfg *config.Config) config.JWTConfig {
	return cfg.Security.JWT
}

// ProvideAuthConfig 提供认证配置
func ProvideAuthConfig(cfg *config.Config) middleware.AuthConfig {
	return middleware.AuthConfig{
		Secret: cfg.Security.JWT.Secret,
		Issuer: cfg.Security.JWT.Issuer,
	}
}

// ProvideRateLimitKey 提供限流键构造函数
func ProvideRateLimitKey() middleware.KeyFunc {
	return redis.BuildRateLimitKey
}
