package router

import (
	"github.com/Welazure/Item-trade-backend/internal/config"
	"github.com/Welazure/Item-trade-backend/internal/handler"
	"github.com/Welazure/Item-trade-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and wires all routes.
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 上传的媒体文件直接静态托管
	r.Static("/uploads", cfg.Upload.Dir)

	// Prometheus 抓取端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwtSecret := cfg.JWT.Secret

	itemHandler := handler.NewItemHandler(db, cfg.Upload.Dir, cfg.App.PageSize)
	bookingHandler := handler.NewBookingHandler(db)
	mediaHandler := handler.NewMediaHandler(db, cfg.Upload.Dir, cfg.Upload.MaxSizeMB)
	categoryHandler := handler.NewCategoryHandler(db)
	pointsHandler := handler.NewPointsHandler(db)
	profileHandler := handler.NewProfileHandler(db)
	exportHandler := handler.NewExportHandler(db)
	auditHandler := handler.NewAuditHandler(db)

	// ====== API ======
	api := r.Group("/api")

	// 登录/注册接口（不需要鉴权）
	authHandler := handler.NewAuthHandler(db, jwtSecret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// 公开浏览接口。详情页对未过审物品有可见性判断，挂 OptionalAuth
	public := api.Group("")
	public.Use(middleware.OptionalAuth(jwtSecret, db))
	public.GET("/items", itemHandler.ListApprovedItems)
	public.GET("/items/:id", itemHandler.GetItemByID)
	public.GET("/categories", categoryHandler.ListCategories)
	public.GET("/categories/:id", categoryHandler.GetCategoryByID)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, db),
		middleware.AuditMiddleware(db),
	)

	// 物品
	protected.POST("/items", itemHandler.CreateItem)
	protected.GET("/items/my-items", itemHandler.GetMyItems)
	protected.PUT("/items/:id", itemHandler.UpdateItem)
	protected.DELETE("/items/:id", itemHandler.DeleteItem)

	// 预订
	protected.POST("/bookings/:itemId", bookingHandler.CreateBooking)
	protected.GET("/bookings/my-bookings", bookingHandler.GetMyBookings)
	protected.GET("/bookings/my-items-bookings", bookingHandler.GetMyItemsBookings)
	protected.GET("/bookings/:id", bookingHandler.GetBookingByID)
	protected.PUT("/bookings/:id/cancel", bookingHandler.CancelBooking)

	// 媒体
	protected.POST("/media/upload/:itemId", mediaHandler.UploadMedia)
	protected.DELETE("/media/:mediaId", mediaHandler.DeleteMedia)

	// 积分
	protected.GET("/points/balance", pointsHandler.GetBalance)
	protected.POST("/points/buy", pointsHandler.BuyPoints)

	// 个人资料
	protected.GET("/profile/me", profileHandler.GetMyProfile)
	protected.PUT("/profile/me", profileHandler.UpdateMyProfile)
	protected.POST("/profile/password", profileHandler.ChangePassword)
	protected.POST("/profile/delete", profileHandler.DeleteAccount)

	// ====== 管理员 ======
	admin := protected.Group("")
	admin.Use(middleware.RequireAdmin())

	admin.GET("/items/pending", itemHandler.GetPendingItems)
	admin.POST("/items/:id/approve", itemHandler.ApproveItem)
	admin.GET("/bookings/all", bookingHandler.GetAllBookings)
	admin.POST("/categories", categoryHandler.CreateCategory)
	admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
	admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)
	admin.GET("/export/bookings", exportHandler.ExportBookingsXLSX)
	admin.GET("/export/items", exportHandler.ExportItemsXLSX)
	admin.GET("/logs", auditHandler.ListAuditLogs)

	return r
}
