package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/middleware"
	"github.com/jirateep12z/go-starter-api/internal/repository"
	"github.com/jirateep12z/go-starter-api/internal/service"
	"github.com/jirateep12z/go-starter-api/internal/storage"
)

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	db    *pgxpool.Pool
	cache *redis.Client

	users *repository.UserRepository

	authService        *service.AuthService
	userService        *service.UserService
	rbacService        *service.RBACService
	sessionService     *service.SessionService
	uploadService      *service.UploadService
	notifyService      *service.NotificationService
	backupService      *service.BackupService
	ipWhitelistService *service.IPWhitelistService
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	roleRepo := repository.NewRoleRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	userRepo := repository.NewUserRepository(db, roleRepo)
	sessionRepo := repository.NewSessionRepository(db)
	fileRepo := repository.NewFileRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	ipWhitelistRepo := repository.NewIPWhitelistRepository(db)

	rbac := service.NewRBACService(roleRepo, permissionRepo, cache, log)
	sessions := service.NewSessionService(sessionRepo, cfg.Security, log)
	auth := service.NewAuthService(userRepo, sessions, rbac, cfg.Security, log)
	users := service.NewUserService(userRepo, log)
	uploads := service.NewUploadService(fileRepo, store, cfg.Upload, log)
	notify := service.NewNotificationService(templateRepo, configuredSenders(cfg.Notify), log)
	backups := service.NewBackupService(cfg.Backup, cfg.Postgres, store, log)
	ipWhitelist := service.NewIPWhitelistService(ipWhitelistRepo, log)

	return HandlerSet{
		log:                log,
		cfg:                cfg,
		db:                 db,
		cache:              cache,
		users:              userRepo,
		authService:        auth,
		userService:        users,
		rbacService:        rbac,
		sessionService:     sessions,
		uploadService:      uploads,
		notifyService:      notify,
		backupService:      backups,
		ipWhitelistService: ipWhitelist,
	}
}

func configuredSenders(cfg config.NotifyConfig) []service.Sender {
	var senders []service.Sender
	if cfg.Email.Host != "" && cfg.Email.To != "" {
		senders = append(senders, service.NewEmailSender(cfg.Email))
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		senders = append(senders, service.NewTelegramSender(cfg.Telegram))
	}
	if cfg.Discord.WebhookURL != "" {
		senders = append(senders, service.NewDiscordSender(cfg.Discord))
	}
	if cfg.Line.AccessToken != "" {
		senders = append(senders, service.NewLineSender(cfg.Line))
	}
	return senders
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	if h.cfg.IPWhitelist.Enabled {
		v1.Use(middleware.IPWhitelist(h.ipWhitelistService, h.log))
	}

	authn := middleware.Auth(h.cfg.Security.JWTSecret, h.users, h.sessionService, h.log)

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.AuthRegister)
		auth.POST("/login", h.AuthLogin)
		auth.POST("/refresh", h.AuthRefresh)
		auth.POST("/logout", authn, h.AuthLogout)
		auth.GET("/me", authn, h.AuthMe)
	}

	users := v1.Group("/users", authn)
	{
		users.GET("", middleware.RequirePermissions("users.view"), h.ListUsers)
		users.POST("", middleware.RequirePermissions("users.create"), h.CreateUser)
		users.GET("/:id", middleware.RequirePermissions("users.view"), h.GetUser)
		users.PATCH("/:id", middleware.RequirePermissions("users.update"), h.UpdateUser)
		users.DELETE("/:id", middleware.RequirePermissions("users.delete"), h.DeleteUser)
	}

	roles := v1.Group("/roles", authn)
	{
		roles.GET("", middleware.RequirePermissions("roles.view"), h.ListRoles)
		roles.POST("", middleware.RequirePermissions("roles.create"), h.CreateRole)
		roles.GET("/:id", middleware.RequirePermissions("roles.view"), h.GetRole)
		roles.PATCH("/:id", middleware.RequirePermissions("roles.update"), h.UpdateRole)
		roles.DELETE("/:id", middleware.RequirePermissions("roles.delete"), h.DeleteRole)
		roles.POST("/:id/permissions", middleware.RequirePermissions("roles.update"), h.AssignRolePermissions)
	}

	permissions := v1.Group("/permissions", authn)
	{
		permissions.GET("", middleware.RequirePermissions("permissions.view"), h.ListPermissions)
		permissions.POST("", middleware.RequirePermissions("permissions.create"), h.CreatePermission)
		permissions.GET("/:id", middleware.RequirePermissions("permissions.view"), h.GetPermission)
		permissions.PATCH("/:id", middleware.RequirePermissions("permissions.update"), h.UpdatePermission)
		permissions.DELETE("/:id", middleware.RequirePermissions("permissions.delete"), h.DeletePermission)
	}

	sessions := v1.Group("/sessions", authn)
	{
		sessions.GET("", h.ListSessions)
		sessions.GET("/stats", h.SessionStats)
		sessions.DELETE("/:id", h.RevokeSession)
		sessions.DELETE("", h.RevokeAllSessions)
	}

	files := v1.Group("/files", authn)
	{
		files.POST("/upload", middleware.RequirePermissions("files.upload"), h.UploadFile)
		files.GET("", middleware.RequirePermissions("files.view"), h.ListFiles)
		files.GET("/:id/download", middleware.RequirePermissions("files.view"), h.DownloadFile)
		files.DELETE("/:id", middleware.RequirePermissions("files.delete"), h.DeleteFile)
	}

	notifications := v1.Group("/notifications", authn)
	{
		templates := notifications.Group("/templates", middleware.RequirePermissions("notifications.manage"))
		templates.GET("", h.ListTemplates)
		templates.POST("", h.CreateTemplate)
		templates.GET("/:id", h.GetTemplate)
		templates.PATCH("/:id", h.UpdateTemplate)
		templates.DELETE("/:id", h.DeleteTemplate)

		notifications.POST("/send", middleware.RequirePermissions("notifications.send"), h.SendNotification)
	}

	backups := v1.Group("/backups", authn)
	{
		backups.POST("", middleware.RequirePermissions("backups.create"), h.CreateBackup)
		backups.GET("", middleware.RequirePermissions("backups.view"), h.ListBackups)
		backups.GET("/stats", middleware.RequirePermissions("backups.view"), h.BackupStats)
		backups.DELETE("/:name", middleware.RequirePermissions("backups.delete"), h.DeleteBackup)
	}

	ipWhitelist := v1.Group("/ip-whitelist", authn, middleware.RequirePermissions("system.manage"))
	{
		ipWhitelist.GET("", h.ListIPWhitelist)
		ipWhitelist.POST("", h.CreateIPWhitelist)
		ipWhitelist.GET("/:id", h.GetIPWhitelist)
		ipWhitelist.PATCH("/:id", h.UpdateIPWhitelist)
		ipWhitelist.DELETE("/:id", h.DeleteIPWhitelist)
	}
}

// respondError translates service errors into HTTP responses. Internal error
// text never reaches the client.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": apperr.MessageOf(err)})
}

// callerPriority exposes the authenticated user's role priority for the
// role-mutation guards. Nil means the caller has no resolved role.
func callerPriority(c *gin.Context) *int {
	user, ok := middleware.CurrentUser(c)
	if !ok || user.Role == nil {
		return nil
	}
	priority := user.Role.Priority
	return &priority
}
