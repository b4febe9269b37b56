package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"event-planner/internal/calendar"
	"event-planner/internal/config"
	"event-planner/internal/logging"
	"event-planner/internal/metrics"
	"event-planner/internal/repository"
	"event-planner/internal/service"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg        *config.Config
	log        *logrus.Logger
	db         *gorm.DB
	metrics    *metrics.Recorder
	users      *repository.UserRepository
	events     *service.EventService
	tasks      *service.TaskService
	categories *service.CategoryService
	reminders  *service.ReminderService
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Log)

	db, err := repository.NewDB(cfg.Database.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var syncer calendar.Syncer = calendar.Noop{}
	if cfg.Calendar.Enabled {
		syncer = calendar.NewICSCalendar(cfg.Calendar.Path)
		log.WithField("path", cfg.Calendar.Path).Info("calendar sync enabled")
	}

	rec := metrics.New()
	opts := service.Options{
		Log:           log,
		Metrics:       rec,
		Timeout:       cfg.Store.Timeout,
		DueSoonWindow: cfg.Notify.Window,
	}

	eventRepo := repository.NewEventRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	a := &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		metrics:    rec,
		users:      repository.NewUserRepository(db),
		events:     service.NewEventService(eventRepo, syncer, opts),
		tasks:      service.NewTaskService(taskRepo, eventRepo, categoryRepo, opts),
		categories: service.NewCategoryService(categoryRepo, taskRepo, opts),
	}
	a.reminders = service.NewReminderService(a.events, a.tasks, a.categories, opts)
	return a, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
