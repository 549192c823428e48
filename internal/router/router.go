package router

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/handler"
	"github.com/noah-isme/sma-finance-api/internal/middleware"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/internal/service"
	"github.com/noah-isme/sma-finance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-finance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-finance-api/pkg/middleware/requestid"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Handlers groups every HTTP handler mounted by New. Reports and
// Configuration may be nil when the feature is disabled.
type Handlers struct {
	Ledger        *handler.LedgerHandler
	Fees          *handler.FeeHandler
	Income        *handler.CashbookHandler
	Expenses      *handler.CashbookHandler
	Finance       *handler.FinanceHandler
	Sessions      *handler.SessionHandler
	Configuration *handler.ConfigurationHandler
	Reports       *handler.ReportHandler
	Ops           *handler.MetricsHandler
}

// Options controls the middleware chain.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	// Tokens validates bearer tokens. Nil serves every request as an
	// anonymous SUPERADMIN.
	Tokens      tokenValidator
	Audit       auditWriter
	Metrics     *service.MetricsService
	MetricsPath string
	Docs        bool
	Logger      *zap.Logger
}

var (
	writers = []models.UserRole{models.RoleAdmin, models.RoleAccountant}
	admins  = []models.UserRole{models.RoleAdmin}
)

// New builds the gin engine with the finance route table.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", h.Ops.Health)
	r.GET("/ready", h.Ops.Ready)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, h.Ops.Prometheus)
	}
	if opts.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := strings.TrimRight(opts.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())
	if opts.Tokens != nil {
		api.Use(middleware.JWT(opts.Tokens))
	} else {
		api.Use(middleware.Anonymous())
	}

	audit := func(action, resource string) gin.HandlerFunc {
		if opts.Audit == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(opts.Audit, opts.Logger, action, resource)
	}
	write := middleware.RequireRoles(writers...)
	admin := middleware.RequireRoles(admins...)

	fees := api.Group("/fees")
	fees.POST("/obligations", write, audit("FEE_ASSIGN", "student_fee"), h.Ledger.Assign)
	fees.POST("/collect", write, audit("FEE_COLLECT", "student_fee"), h.Ledger.Collect)
	fees.GET("/obligations", h.Ledger.List)
	fees.GET("/obligations/:id", h.Ledger.Get)
	fees.GET("/obligations/:id/payments", h.Ledger.Payments)
	fees.GET("/stats", h.Ledger.Stats)

	fees.GET("/groups", h.Fees.ListGroups)
	fees.POST("/groups", admin, audit("FEE_GROUP_CREATE", "fee_group"), h.Fees.CreateGroup)
	fees.PUT("/groups/:id", admin, audit("FEE_GROUP_UPDATE", "fee_group"), h.Fees.UpdateGroup)
	fees.DELETE("/groups/:id", admin, audit("FEE_GROUP_DELETE", "fee_group"), h.Fees.DeleteGroup)
	fees.GET("/types", h.Fees.ListTypes)
	fees.POST("/types", admin, audit("FEE_TYPE_CREATE", "fee_type"), h.Fees.CreateType)
	fees.PUT("/types/:id", admin, audit("FEE_TYPE_UPDATE", "fee_type"), h.Fees.UpdateType)
	fees.DELETE("/types/:id", admin, audit("FEE_TYPE_DELETE", "fee_type"), h.Fees.DeleteType)
	fees.GET("/masters", h.Fees.ListMasters)
	fees.GET("/masters/:id", h.Fees.GetMaster)
	fees.POST("/masters", admin, audit("FEE_MASTER_CREATE", "fee_master"), h.Fees.CreateMaster)
	fees.PUT("/masters/:id", admin, audit("FEE_MASTER_UPDATE", "fee_master"), h.Fees.UpdateMaster)
	fees.DELETE("/masters/:id", admin, audit("FEE_MASTER_DELETE", "fee_master"), h.Fees.DeleteMaster)

	mountCashbook(api.Group("/income"), h.Income, "INCOME", write, audit)
	mountCashbook(api.Group("/expenses"), h.Expenses, "EXPENSE", write, audit)

	finance := api.Group("/finance")
	finance.GET("/summary", h.Finance.Summary)
	finance.GET("/monthly", h.Finance.Monthly)
	finance.GET("/session", h.Finance.Session)
	finance.GET("/dashboard", h.Finance.Dashboard)

	sessions := api.Group("/sessions")
	sessions.GET("", h.Sessions.List)
	sessions.POST("", admin, audit("SESSION_CREATE", "session"), h.Sessions.Create)
	sessions.GET("/current", h.Sessions.Current)
	sessions.PUT("/:id/current", admin, audit("SESSION_SET_CURRENT", "session"), h.Sessions.SetCurrent)

	if h.Configuration != nil {
		configs := api.Group("/configuration")
		configs.GET("", h.Configuration.List)
		configs.PUT("", admin, audit("CONFIG_BULK_UPDATE", "configuration"), h.Configuration.BulkUpdate)
		configs.GET("/:key", h.Configuration.Get)
		configs.PUT("/:key", admin, audit("CONFIG_UPDATE", "configuration"), h.Configuration.Update)
	}

	if h.Reports != nil {
		reports := api.Group("/reports", write)
		reports.POST("/finance", audit("REPORT_CREATE", "report_job"), h.Reports.Generate)
		reports.GET("/finance/:id", h.Reports.Status)
		reports.GET("/download/:token", h.Reports.Download)
	}

	return r
}

func mountCashbook(g *gin.RouterGroup, h *handler.CashbookHandler, action string, write gin.HandlerFunc, audit func(action, resource string) gin.HandlerFunc) {
	resource := strings.ToLower(action)
	g.GET("/heads", h.ListHeads)
	g.POST("/heads", write, audit(action+"_HEAD_CREATE", resource+"_head"), h.CreateHead)
	g.PUT("/heads/:id", write, audit(action+"_HEAD_UPDATE", resource+"_head"), h.UpdateHead)
	g.DELETE("/heads/:id", write, audit(action+"_HEAD_DELETE", resource+"_head"), h.DeleteHead)
	g.GET("/stats", h.Stats)
	g.GET("", h.ListEntries)
	g.POST("", write, audit(action+"_CREATE", resource), h.CreateEntry)
	g.GET("/:id", h.GetEntry)
	g.PUT("/:id", write, audit(action+"_UPDATE", resource), h.UpdateEntry)
	g.DELETE("/:id", write, audit(action+"_DELETE", resource), h.DeleteEntry)
}
