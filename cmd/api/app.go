package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"boatcatalog/internal/backend"
	"boatcatalog/internal/config"
	"boatcatalog/internal/database"
	domain "boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/media"
	"boatcatalog/internal/middleware"
	"boatcatalog/internal/modules/admin"
	"boatcatalog/internal/modules/catalog"
	"boatcatalog/internal/modules/live"
	"boatcatalog/internal/modules/upload"
	jwtsvc "boatcatalog/internal/pkg/jwt"
	"boatcatalog/internal/snapshot"
)

type app struct {
	cfg *config.Config
	db  *gorm.DB
	hub *live.Hub
	jwt *jwtsvc.Service

	adminHandler    *admin.Handler
	catalogHandler  *catalog.Handler
	uploadHandler   *upload.Handler
	snapshotHandler *snapshot.Handler
	liveHandler     *live.Handler
}

func newApp(cfg *config.Config) (*app, error) {
	tables, err := media.LoadTables(cfg.CatalogTablesFile)
	if err != nil {
		return nil, err
	}
	resolver := media.NewResolver(cfg.ImageBasePrefix, tables)
	transformer := domain.NewTransformer(resolver)

	client := backend.New(backend.Config{
		BaseURL:  cfg.BackendURL,
		Email:    cfg.BackendEmail,
		Password: cfg.BackendPassword,
		Timeout:  cfg.BackendTimeout,
		CacheTTL: cfg.BackendCacheTTL,
	})

	db, err := database.Connect(cfg.SnapshotDSN)
	if err != nil {
		return nil, fmt.Errorf("connect snapshot db: %w", err)
	}
	if err := database.Migrate(db, &snapshot.Snapshot{}, &upload.Upload{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	hub := live.NewHub(cfg.CORSAllowedOrigins)
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	catalogService := catalog.NewService(client, transformer, hub)

	var store upload.Store = upload.NewBackendStore(client)
	if cfg.CloudinaryURL != "" {
		cld, err := upload.NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			return nil, err
		}
		store = cld
	}
	log.Printf("upload store=%s max_dimension=%d quality=%d", store.Name(), cfg.UploadMaxDimension, cfg.UploadJPEGQuality)

	uploadService := upload.NewService(
		store,
		upload.NewRepository(db),
		upload.NewOptimizer(cfg.UploadMaxDimension, cfg.UploadJPEGQuality),
		catalogService,
		hub,
		resolver,
	)

	snapshotService := snapshot.NewService(client, transformer, snapshot.NewRepository(db))

	return &app{
		cfg:             cfg,
		db:              db,
		hub:             hub,
		jwt:             j,
		adminHandler:    admin.NewHandler(admin.NewService(cfg.AdminUsername, cfg.AdminPasswordHash, j)),
		catalogHandler:  catalog.NewHandler(catalogService),
		uploadHandler:   upload.NewHandler(uploadService),
		snapshotHandler: snapshot.NewHandler(snapshotService),
		liveHandler:     live.NewHandler(hub),
	}, nil
}

func (a *app) Router() *gin.Engine {
	if a.cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(a.cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "live_connections": a.hub.Count()})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		a.catalogHandler.RegisterRoutes(v1)

		adminGroup := v1.Group("/admin")
		a.adminHandler.RegisterRoutes(adminGroup)

		// protected
		protected := adminGroup.Group("")
		protected.Use(middleware.JWTAuth(a.jwt), middleware.AdminOnly())
		{
			a.catalogHandler.RegisterAdminRoutes(protected)
			a.uploadHandler.RegisterRoutes(protected)
			a.snapshotHandler.RegisterRoutes(protected)
			a.liveHandler.RegisterRoutes(protected)
		}
	}

	return r
}

func (a *app) Close() {
	a.hub.Close()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
