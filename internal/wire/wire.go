//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"refine-ai-api/internal/application/library"
	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/application/testrun"
	"refine-ai-api/internal/application/wizard"
	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/domain/repository"
	"refine-ai-api/internal/infrastructure/llm"
	"refine-ai-api/internal/infrastructure/messaging"
	"refine-ai-api/internal/infrastructure/persistence/postgres"
	"refine-ai-api/internal/infrastructure/persistence/redis"
	"refine-ai-api/internal/interfaces/http/handler"
	"refine-ai-api/internal/interfaces/http/middleware"
	"refine-ai-api/internal/interfaces/http/router"
	"refine-ai-api/internal/workflow/chain"
	"refine-ai-api/internal/workflow/port"
	"refine-ai-api/internal/workflow/prompt"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeToolkit 初始化命令行工具依赖（不连接 PostgreSQL）
func InitializeToolkit(ctx context.Context, cfg *config.Config) (*Toolkit, func(), error) {
	wire.Build(
		RedisSet,
		GenerationSet,
		wire.Struct(new(Toolkit), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		GenerationSet,
		ServiceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewSavedPromptRepository,
	postgres.NewPromptTemplateRepository,
	postgres.NewUserSettingsRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.SavedPromptRepository), new(*postgres.SavedPromptRepository)),
	wire.Bind(new(repository.PromptTemplateRepository), new(*postgres.PromptTemplateRepository)),
	wire.Bind(new(repository.UserSettingsRepository), new(*postgres.UserSettingsRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideSessionStore,
	wire.Bind(new(promptgen.ResultCache), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
	wire.Bind(new(wizard.SessionStore), new(*redis.SessionStore)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideChangeFeed,
	wire.Bind(new(repository.ChangeFeed), new(*messaging.ChangeFeed)),
)

// GenerationSet 目录、模型工厂、生成器与试运行
var GenerationSet = wire.NewSet(
	catalog.Default,
	prompt.NewRegistry,
	llm.NewEinoFactory,
	wire.Bind(new(port.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideGenerator,
	chain.NewTestRunChain,
	wire.Bind(new(testrun.Streamer), new(*chain.TestRunChain)),
	ProvideTestRunner,
)

// ServiceSet 应用服务集合
var ServiceSet = wire.NewSet(
	library.NewService,
	wire.Bind(new(wizard.Library), new(*library.Service)),
	wire.Bind(new(wizard.Generator), new(*promptgen.Generator)),
	wizard.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthConfig,
	ProvideJWTConfig,
	ProvideRateLimitKey,
	ProvideHealthHandler,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewCatalogHandler,
	handler.NewGenerateHandler,
	handler.NewTestRunHandler,
	handler.NewWizardHandler,
	handler.NewLibraryHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
