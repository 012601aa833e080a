package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/locum-staffing/config"
	"github.com/yeremiapane/locum-staffing/controllers"
	"github.com/yeremiapane/locum-staffing/metrics"
	"github.com/yeremiapane/locum-staffing/middlewares"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/realtime"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

// App holds the services shared by the HTTP layer and the background loops.
type App struct {
	DB     *gorm.DB
	Config *config.Config

	Tokens      *utils.TokenManager
	Hub         *realtime.Hub
	Engine      *services.AssignmentEngine
	Tracker     *services.ShiftTracker
	Matcher     *services.CompatibilityMatcher
	Jobs        *services.JobService
	Accounts    *services.AccountService
	Hospitals   *services.HospitalService
	Monitor     *services.EventMonitor
	RateLimiter *middlewares.RateLimiter
	Idempotency *middlewares.Idempotency
}

func NewApp(db *gorm.DB, cfg *config.Config) *App {
	locks := services.NewJobLocks()
	engine := services.NewAssignmentEngine(db, locks)
	matcher := services.NewCompatibilityMatcher(db, services.MatchOptions{
		SameDepartment: cfg.Match.SameDepartment,
		SameLocation:   cfg.Match.SameLocation,
	})
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	hub := realtime.NewHub()

	return &App{
		DB:          db,
		Config:      cfg,
		Tokens:      tokens,
		Hub:         hub,
		Engine:      engine,
		Tracker:     services.NewShiftTracker(db, locks),
		Matcher:     matcher,
		Jobs:        services.NewJobService(db, engine, matcher),
		Accounts:    services.NewAccountService(db, tokens),
		Hospitals:   services.NewHospitalService(db),
		Monitor:     services.NewEventMonitor(db, hub, cfg.EventPollInterval),
		RateLimiter: middlewares.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Idempotency: middlewares.NewIdempotency(db, cfg.IdempotencyTTL),
	}
}

// Start launches the event monitor and the cleanup loops. They stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Monitor.Start(ctx)
	go a.Tokens.Revocations().Run(ctx, 10*time.Minute)
	go a.RateLimiter.Run(ctx)
	go a.Idempotency.Run(ctx, time.Hour)
}

func SetupRouter(app *App) (*gin.Engine, error) {
	cfg := app.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	if cfg.MetricsEnabled {
		r.Use(metrics.HTTPMiddleware())
	}
	if cfg.RateLimit.RPS > 0 {
		r.Use(app.RateLimiter.RateLimit())
	}

	loginLimiter, err := middlewares.NewStrictRateLimiter(cfg.RateLimit.LoginLimit,
		middlewares.NewLimiterStore(cfg.RateLimit.Storage, cfg.RateLimit.RedisURL))
	if err != nil {
		return nil, err
	}

	userCtrl := controllers.NewUserController(app.Accounts)
	jobCtrl := controllers.NewJobController(app.Jobs, app.Engine, app.Matcher)
	staffCtrl := controllers.NewStaffController(app.Jobs, app.Engine, app.Tracker)
	hospitalCtrl := controllers.NewHospitalController(app.Hospitals)
	adminCtrl := controllers.NewAdminController(app.DB, app.Tracker)

	authRequired := middlewares.AuthMiddleware(app.Tokens)
	idempotent := app.Idempotency.Middleware()

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(app.Tokens), controllers.LiveFeedHandler(app.Hub, cfg.CORSOrigin))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", loginLimiter, userCtrl.Login)
		authGroup.POST("/register", loginLimiter, userCtrl.Register)

		authGroup.Use(authRequired)
		authGroup.GET("/profile", userCtrl.GetProfile)
		authGroup.PUT("/profile", userCtrl.UpdateProfile)
		authGroup.PUT("/change-password", userCtrl.ChangePassword)
		authGroup.POST("/logout", userCtrl.Logout)
		authGroup.POST("/refresh", userCtrl.Refresh)
	}

	public := api.Group("/public")
	{
		public.GET("/hospitals", hospitalCtrl.ListHospitals)
		public.GET("/hospitals/:id/units", hospitalCtrl.ListUnits)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	jobs := api.Group("/jobs")
	jobs.Use(authRequired)
	{
		jobs.GET("/categories", jobCtrl.Categories)
		jobs.GET("/:id", jobCtrl.GetJob)
	}

	hr := api.Group("/hr")
	hr.Use(authRequired, middlewares.RequireRoles(models.RoleHR, models.RoleAdmin))
	{
		hr.POST("/jobs", jobCtrl.CreateJob)
		hr.GET("/jobs", jobCtrl.ListJobs)
		hr.GET("/jobs/:id", jobCtrl.GetJob)
		hr.PUT("/jobs/:id", jobCtrl.UpdateJob)
		hr.PATCH("/jobs/:id/cancel", jobCtrl.CancelJob)
		hr.POST("/jobs/:id/complete", jobCtrl.CompleteJob)
		hr.GET("/jobs/:id/assignments", jobCtrl.JobAssignments)
		hr.GET("/jobs/:id/accepted-assignments", jobCtrl.AcceptedAssignments)
		hr.GET("/jobs/:id/status", jobCtrl.JobStatus)
		hr.POST("/jobs/:id/offers", jobCtrl.CreateOffers)
		hr.POST("/jobs/:id/assign", jobCtrl.AssignStaff)
		hr.POST("/jobs/:id/select-candidate", idempotent, jobCtrl.SelectCandidate)

		hr.PATCH("/assignments/:id/cancel", jobCtrl.CancelAssignment)
		hr.POST("/assignments/:id/complete", jobCtrl.CompleteAssignment)

		hr.GET("/users", userCtrl.ListUsers)
		hr.GET("/users/:id", userCtrl.GetUser)
		hr.PATCH("/users/:id/status", userCtrl.SetUserStatus)

		hr.GET("/dashboard", adminCtrl.Dashboard)
		hr.GET("/reports/timesheet", adminCtrl.TimesheetReport)
	}

	staff := api.Group("/staff")
	staff.Use(authRequired, middlewares.RequireRoles(models.RoleDoctor, models.RoleNurse))
	{
		staff.GET("/jobs/available", staffCtrl.AvailableJobs)
		staff.GET("/assignments", staffCtrl.MyAssignments)
		staff.GET("/assignments/active", staffCtrl.ActiveAssignments)
		staff.POST("/assignments/:id/respond", idempotent, staffCtrl.Respond)
		staff.GET("/assignments/:id/check-in-status", staffCtrl.CheckInStatus)
		staff.POST("/check-in", idempotent, staffCtrl.CheckIn)
		staff.POST("/check-out", idempotent, staffCtrl.CheckOut)
		staff.GET("/status", staffCtrl.WorkStatus)
	}

	return r, nil
}
