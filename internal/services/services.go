package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/db"
	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/mailer"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/comment"
	"github.com/curaious/workboard/internal/services/file"
	"github.com/curaious/workboard/internal/services/guest"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/status"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/curaious/workboard/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Services struct {
	Identity     *identity.Resolver
	User         *user.UserService
	Project      *project.ProjectService
	Task         *task.TaskService
	Guest        *guest.GuestService
	Comment      *comment.CommentService
	TaskComment  *comment.TaskCommentService
	File         *file.FileService
	Activity     *activity.ActivityService
	Status       *status.StatusService
	Notification *notification.NotificationService

	Store storage.Store
	Relay *activity.Relay
}

// Repositories is the persistence layer the services are assembled on.
type Repositories struct {
	Users         user.Repository
	Projects      project.Repository
	Tasks         task.Repository
	Guests        guest.Repository
	Comments      comment.Repository
	TaskComments  comment.TaskCommentRepository
	Files         file.Repository
	Activity      activity.Repository
	Statuses      status.Repository
	Notifications notification.Repository
}

func PostgresRepositories(dbconn *sqlx.DB) Repositories {
	return Repositories{
		Users:         user.NewUserRepo(dbconn),
		Projects:      project.NewProjectRepo(dbconn),
		Tasks:         task.NewTaskRepo(dbconn),
		Guests:        guest.NewGuestRepo(dbconn),
		Comments:      comment.NewCommentRepo(dbconn),
		TaskComments:  comment.NewTaskCommentRepo(dbconn),
		Files:         file.NewFileRepo(dbconn),
		Activity:      activity.NewActivityRepo(dbconn),
		Statuses:      status.NewStatusRepo(dbconn),
		Notifications: notification.NewNotificationRepo(dbconn),
	}
}

// Assemble wires the services together. exporter may be nil.
func Assemble(repos Repositories, store storage.Store, m guest.Mailer, exporter activity.Exporter, conf *config.Config) *Services {
	resolver := identity.NewResolver(repos.Users)

	userSvc := user.NewUserService(repos.Users, conf.TOKEN_ISSUER)
	activitySvc := activity.NewActivityService(repos.Activity, repos.Users, resolver)
	notificationSvc := notification.NewNotificationService(repos.Notifications, resolver)
	projectSvc := project.NewProjectService(repos.Projects, repos.Guests, resolver, store, activitySvc)
	taskSvc := task.NewTaskService(repos.Tasks, projectSvc, resolver, store, activitySvc, notificationSvc)

	return &Services{
		Identity:     resolver,
		User:         userSvc,
		Project:      projectSvc,
		Task:         taskSvc,
		Guest:        guest.NewGuestService(repos.Guests, projectSvc, repos.Users, resolver, m, activitySvc, notificationSvc, conf.APP_BASE_URL),
		Comment:      comment.NewCommentService(repos.Comments, projectSvc, repos.Users, resolver, activitySvc),
		TaskComment:  comment.NewTaskCommentService(repos.TaskComments, taskSvc, repos.Users, resolver, activitySvc, notificationSvc),
		File:         file.NewFileService(repos.Files, store, projectSvc, taskSvc, resolver),
		Activity:     activitySvc,
		Status:       status.NewStatusService(repos.Statuses, resolver, activitySvc),
		Notification: notificationSvc,
		Store:        store,
		Relay:        activity.NewRelay(repos.Activity, exporter),
	}
}

func NewServices(ctx context.Context, conf *config.Config) (*Services, error) {
	dbconn := db.NewConn(conf)

	store, err := NewObjectStore(ctx, conf)
	if err != nil {
		return nil, err
	}

	var exporter activity.Exporter
	if conf.CLICKHOUSE_HOST != "" {
		chConn, err := activity.NewClickHouseConn(&activity.ClickHouseConfig{
			Host:     conf.CLICKHOUSE_HOST,
			Port:     conf.CLICKHOUSE_PORT,
			Database: conf.CLICKHOUSE_DATABASE,
			Username: conf.CLICKHOUSE_USERNAME,
			Password: conf.CLICKHOUSE_PASSWORD,
			UseTLS:   conf.CLICKHOUSE_USE_TLS,
		})
		if err != nil {
			slog.Warn("Failed to connect to ClickHouse for activity export", slog.Any("error", err))
		} else if exp, err := activity.NewClickHouseExporter(ctx, chConn); err != nil {
			slog.Warn("Failed to prepare ClickHouse activity table", slog.Any("error", err))
		} else {
			exporter = exp
			slog.Info("Connected to ClickHouse for activity export")
		}
	}

	m := mailer.New(conf)
	if !m.Configured() {
		slog.Warn("RESEND_API_KEY is not set, invitation emails will not be sent")
	}

	return Assemble(PostgresRepositories(dbconn), store, m, exporter, conf), nil
}

// NewObjectStore builds the object store selected by STORAGE_DRIVER.
func NewObjectStore(ctx context.Context, conf *config.Config) (storage.Store, error) {
	baseURL := strings.TrimRight(conf.APP_BASE_URL, "/")

	switch conf.STORAGE_DRIVER {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  conf.S3_ENDPOINT,
			AccessKey: conf.S3_ACCESS_KEY,
			SecretKey: conf.S3_SECRET_KEY,
			Bucket:    conf.S3_BUCKET,
			UseSSL:    conf.S3_USE_SSL,
			UploadTTL: conf.STORAGE_UPLOAD_TTL,
			URLTTL:    conf.STORAGE_URL_TTL,
		})
	case "memory":
		slog.Warn("Using in-memory object storage, objects are lost on restart")
		return storage.NewMemoryStore(baseURL, conf.STORAGE_UPLOAD_TTL, conf.STORAGE_URL_TTL), nil
	case "disk", "":
		var tickets storage.TicketStore
		if conf.REDIS_ADDR != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     conf.REDIS_ADDR,
				Password: conf.REDIS_PASSWORD,
				DB:       conf.REDIS_DB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			tickets = storage.NewRedisTickets(client)
		} else {
			slog.Info("REDIS_ADDR is not set, upload tickets are kept in memory")
			tickets = storage.NewMemoryTickets()
		}

		return storage.NewDiskStore(storage.DiskConfig{
			Dir:           conf.STORAGE_DIR,
			BaseURL:       baseURL,
			SigningSecret: conf.STORAGE_SIGNING_SECRET,
			UploadTTL:     conf.STORAGE_UPLOAD_TTL,
			URLTTL:        conf.STORAGE_URL_TTL,
		}, tickets)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.STORAGE_DRIVER)
	}
}
