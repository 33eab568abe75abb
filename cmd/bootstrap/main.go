package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/entity"
	"refine-ai-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表
	if err := dataLayer.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated.")

	// 4. 创建演示账户
	demoEmail := os.Getenv("BOOTSTRAP_DEMO_EMAIL")
	if demoEmail == "" {
		fmt.Println("Bootstrap completed successfully.")
		return
	}
	demoPassword := os.Getenv("BOOTSTRAP_DEMO_PASSWORD")
	if len(demoPassword) < 6 {
		log.Fatalf("BOOTSTRAP_DEMO_PASSWORD must be at least 6 characters")
	}

	exists, err := dataLayer.UserRepo.ExistsByEmail(ctx, demoEmail)
	if err != nil {
		log.Fatalf("failed to check demo user existence: %v", err)
	}
	if exists {
		fmt.Printf("Demo user %s already exists.\n", demoEmail)
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	user := entity.NewUser(demoEmail, "Demo User")
	if err := user.SetPassword(demoPassword); err != nil {
		log.Fatalf("failed to hash demo password: %v", err)
	}
	if err := dataLayer.UserRepo.Create(ctx, user); err != nil {
		log.Fatalf("failed to create demo user: %v", err)
	}
	if _, err := dataLayer.SettingsRepo.Get(ctx, user.ID); err != nil {
		log.Fatalf("failed to initialize demo settings: %v", err)
	}
	fmt.Printf("Demo user %s created with ID: %s\n", user.Email, user.ID)

	fmt.Println("Bootstrap completed successfully.")
}
