// Package app boots the service: database, settings snapshot, background
// scheduler, and the HTTP API.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/config"
	"github.com/DevonCash/corvmc-backend/internal/db"
	internalhttp "github.com/DevonCash/corvmc-backend/internal/http"
	"github.com/DevonCash/corvmc-backend/internal/ledger"
	"github.com/DevonCash/corvmc-backend/internal/logging"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/DevonCash/corvmc-backend/internal/recurrence"
	"github.com/DevonCash/corvmc-backend/internal/scheduler"
	"github.com/DevonCash/corvmc-backend/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	_, conn, errOpen := open(configPath)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return settings.Seed(ctx, conn)
}

// RunServer boots the HTTP API with the scheduler running alongside it.
// It blocks until ctx is cancelled, then shuts the server down gracefully.
func RunServer(ctx context.Context, configPath string) error {
	cfg, conn, errOpen := open(configPath)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := settings.Seed(ctx, conn); errSeed != nil {
		return errSeed
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	scheduler.New(conn).Start(ctx)

	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: internalhttp.NewRouter(conn, cfg),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Listen)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	log.Info("server stopped")
	return nil
}

// Expand runs one series expansion sweep and exits. Used by the expand
// subcommand for cron-style deployments.
func Expand(ctx context.Context, configPath string) error {
	_, conn, errOpen := open(configPath)
	if errOpen != nil {
		return errOpen
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}
	created, errExpand := recurrence.NewExpander(conn).ExpandAll(ctx)
	if errExpand != nil {
		return errExpand
	}
	log.Infof("expansion sweep created %d instances", created)
	return nil
}

// Allocate runs the monthly credit allocation for every active member and
// exits. Safe to re-run within the same month.
func Allocate(ctx context.Context, configPath string) error {
	_, conn, errOpen := open(configPath)
	if errOpen != nil {
		return errOpen
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	rules := settings.CreditTypeRules()
	book := ledger.New(conn)

	var members []models.Member
	if errFind := conn.WithContext(ctx).
		Select("id").
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&members).Error; errFind != nil {
		return errFind
	}

	allocated := 0
	for _, member := range members {
		for creditType, rule := range rules {
			if rule.MonthlyAmount <= 0 {
				continue
			}
			txRow, errAllocate := book.AllocateMonthlyCredits(ctx, member.ID, rule.MonthlyAmount, creditType)
			if errAllocate != nil {
				log.WithError(errAllocate).Warnf("allocation failed (member=%d type=%s)", member.ID, creditType)
				continue
			}
			if txRow != nil {
				allocated++
			}
		}
	}
	log.Infof("allocated credits for %d member/type pairs", allocated)
	return nil
}

func open(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return nil, nil, errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return nil, nil, errOpen
	}
	return cfg, conn, nil
}
