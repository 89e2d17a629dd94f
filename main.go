package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"civic-karma-system/config"
	"civic-karma-system/handlers"
	"civic-karma-system/metrics"
	"civic-karma-system/middleware"
	"civic-karma-system/models"
	"civic-karma-system/services"
	"civic-karma-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.KarmaEntry{},
		&models.UserStats{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.TokenIssueJob{},
		&models.StreakState{},
		&models.Campaign{},
		&models.Partner{},
		&models.PartnerOffer{},
		&models.Redemption{},
		&models.UserMirror{},
	); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	campaignService := services.NewCampaignService(db)
	streakService := services.NewStreakService(db)
	badgeService := services.NewBadgeService(db)
	karmaService := services.NewKarmaService(db, campaignService, streakService, badgeService, cfg.StatsCacheTTL)
	redemptionService := services.NewRedemptionService(db, karmaService, cfg.RedemptionExpiry, cfg.RedeemMaxRetries, cfg.RedeemRetryBackoff)
	leaderboardService := services.NewLeaderboardService(db, cfg.LeaderboardTTL)
	partnerService := services.NewPartnerService(db)

	if err := badgeService.SeedCatalog(); err != nil {
		log.Fatal("failed to seed badge catalog: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TokenIssuerURL != "" {
		issuerClient := workers.NewTokenIssuerClient(db, cfg.TokenIssuerURL, cfg.TokenIssuerToken, cfg.TokenIssuerMaxTries)
		go workers.PollTokenJobs(ctx, issuerClient, cfg.TokenIssuerInterval)
	} else {
		log.Println("⚠️  TOKEN_ISSUER_URL not set — badge tokens will stay queued")
	}

	if cfg.ProfileSyncURL != "" {
		profileClient := workers.NewProfileSyncClient(db, karmaService, cfg.ProfileSyncURL, cfg.ServiceToken)
		go workers.PollProfiles(ctx, profileClient, cfg.ProfileSyncInterval)
	} else {
		log.Println("⚠️  PROFILE_SYNC_URL not set — leaderboard names will be blank")
	}

	services.StartMaintenanceScheduler(redemptionService, leaderboardService, cfg.LeaderboardTTL)
	metrics.Serve(cfg.MetricsAddr)

	handlers.SetupKarmaRoutes(app, karmaService, badgeService, leaderboardService)
	handlers.SetupRedemptionRoutes(app, redemptionService, partnerService)
	handlers.SetupAdminRoutes(app, karmaService, campaignService, partnerService)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Karma service running on %s", cfg.ListenAddr)
	log.Println("✅ Maintenance scheduler running (redemption expiry + leaderboard refresh)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
