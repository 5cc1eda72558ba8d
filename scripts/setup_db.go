package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"arena-breakout-backend/pkg/config"
	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/utils"
)

func main() {
	adminEmail := flag.String("admin", "", "email of the admin user to create (optional)")
	adminName := flag.String("name", "", "display name of the admin user")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if cfg.PostgresDSN != "" {
		fmt.Printf("🔗 Connecting to database: %s\n", maskPassword(cfg.PostgresDSN))
	} else {
		fmt.Printf("🔗 Opening sqlite database: %s\n", cfg.SQLitePath)
	}

	// 打开数据库时自动执行迁移
	db, err := database.NewDatabase(database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		SQLitePath:  cfg.SQLitePath,
		Debug:       cfg.Debug,
	})
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.HealthCheck(ctx); err != nil {
		log.Fatalf("❌ Failed to ping database: %v", err)
	}
	fmt.Println("✅ Database connection successful, migrations applied")

	if email := strings.TrimSpace(*adminEmail); email != "" {
		admin, err := ensureAdmin(ctx, db, email, *adminName)
		if err != nil {
			log.Fatalf("❌ Failed to create admin: %v", err)
		}
		fmt.Printf("✅ Admin user: %s (id: %s)\n", admin.Email, admin.ID)

		if cfg.IsDevelopment() {
			pair, err := utils.NewJWTService(cfg.JWTSecret).GenerateTokenPair(admin.ID, admin.Email)
			if err != nil {
				log.Fatalf("❌ Failed to sign token: %v", err)
			}
			fmt.Printf("🔑 Development access token:\n%s\n", pair.AccessToken)
		}
	}

	if cfg.CronSecret == "" || cfg.UsesDefaultJWTSecret() {
		fmt.Println("⚠️  Missing secrets, suggested values:")
		if cfg.UsesDefaultJWTSecret() {
			printSecret("JWT_SECRET")
		}
		if cfg.CronSecret == "" {
			printSecret("CRON_SECRET")
		}
	}

	fmt.Println("🎉 Database setup completed! You can now run 'go run ./cmd/server' or 'vercel dev'.")
}

// ensureAdmin 创建管理员，已存在时提升为管理员
func ensureAdmin(ctx context.Context, db database.DatabaseInterface, email, name string) (*models.User, error) {
	existing, err := db.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			if err := db.UpdateUserRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return nil, err
			}
			existing.Role = models.RoleAdmin
		}
		return existing, nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	admin := &models.User{Email: email, Name: name, Role: models.RoleAdmin}
	if err := db.CreateUser(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func printSecret(name string) {
	secret, err := utils.GenerateURLToken(32)
	if err != nil {
		log.Fatalf("❌ Failed to generate %s: %v", name, err)
	}
	fmt.Printf("   %s=%s\n", name, secret)
}

// maskPassword 隐藏连接字符串中的密码
func maskPassword(dsn string) string {
	// 简单的密码隐藏逻辑
	if len(dsn) > 50 {
		return dsn[:20] + "***" + dsn[len(dsn)-20:]
	}
	if len(dsn) > 10 {
		return dsn[:10] + "***"
	}
	return "***"
}
