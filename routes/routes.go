package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/e-learning-backend/controllers"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
	"github.com/vnkhanh/e-learning-backend/ws"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Services *services.Services
	Verifier *utils.TokenVerifier
	Hub      *ws.Hub
	WS       *ws.Handler
	Log      *utils.Logger
}

func SetupRouter(r *gin.Engine, d Deps) *gin.Engine {
	svc := d.Services

	health := controllers.NewHealthController(d.DB, d.Hub)
	categories := controllers.NewCategoryController(svc.Catalog, d.Log)
	courses := controllers.NewCourseController(svc, d.Log)
	requests := controllers.NewAccessRequestController(svc.AccessRequests, d.Log)
	me := controllers.NewMeController(svc, d.Log)
	notifications := controllers.NewNotificationController(svc.Notifications, d.Log)
	users := controllers.NewUserController(svc.Users, d.Log)
	uploads := controllers.NewUploadController(svc.Uploads, d.Log)
	stats := controllers.NewStatsController(svc.Metrics, d.Log)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", health.HealthCheck)
	if d.WS != nil {
		r.GET("/ws/notifications", d.WS.HandleUserWebSocket)
	}

	api := r.Group("/api")
	api.GET("/categories", categories.GetCategories)
	api.GET("/courses", courses.GetCourses)

	user := api.Group("")
	user.Use(middleware.AuthMiddleware(d.Verifier, svc.Users))
	{
		user.GET("/courses/:id", courses.GetCourseDetail)
		user.GET("/courses/:id/access", courses.CheckAccess)
		user.POST("/courses/:id/enroll", courses.Enroll)
		user.GET("/courses/:id/progress", courses.GetProgress)
		user.POST("/courses/:id/complete", courses.CompleteCourse)
		user.POST("/courses/:id/access-requests", requests.CreateRequest)

		user.GET("/lessons/:id", courses.GetLesson)
		user.POST("/lessons/:id/complete", courses.CompleteLesson)

		user.GET("/me", me.GetMe)
		user.PATCH("/me", me.UpdateMe)
		user.GET("/me/courses", me.GetEnrolledCourses)
		user.GET("/me/metrics", me.GetMetrics)
		user.GET("/me/access-requests", requests.MyRequests)

		user.GET("/notifications", notifications.GetNotifications)
		user.GET("/notifications/unread-count", notifications.GetUnreadCount)
		user.PATCH("/notifications/read-all", notifications.MarkAllAsRead)
		user.DELETE("/notifications/read", notifications.DeleteReadNotifications)
		user.PATCH("/notifications/:id/read", notifications.MarkNotificationAsRead)
		user.DELETE("/notifications/:id", notifications.DeleteNotification)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.Verifier, svc.Users), middleware.RequireRoles(models.RoleAdmin))
	{
		// Quản lý danh mục
		admin.POST("/categories", categories.CreateCategory)
		admin.PUT("/categories/:id", categories.UpdateCategory)
		admin.DELETE("/categories/:id", categories.DeleteCategory)

		// Quản lý khóa học
		admin.GET("/courses", courses.AdminGetCourses)
		admin.POST("/courses", courses.CreateCourse)
		admin.PATCH("/courses/:id", courses.UpdateCourse)
		admin.DELETE("/courses/:id", courses.DeleteCourse)
		admin.POST("/courses/:id/modules", courses.CreateModule)
		admin.PUT("/courses/:id/modules/order", courses.ReorderModules)

		admin.PATCH("/modules/:id", courses.UpdateModule)
		admin.DELETE("/modules/:id", courses.DeleteModule)
		admin.POST("/modules/:id/lessons", courses.CreateLesson)
		admin.PUT("/modules/:id/lessons/order", courses.ReorderLessons)

		admin.PATCH("/lessons/:id", courses.UpdateLesson)
		admin.DELETE("/lessons/:id", courses.DeleteLesson)

		admin.POST("/uploads/:kind", uploads.Upload)
		admin.DELETE("/uploads", uploads.Remove)

		// Quản lý người dùng
		admin.GET("/users", users.GetUsers)
		admin.PATCH("/users/:id", users.UpdateUser)
		admin.DELETE("/users/:id", users.DeleteUser)

		// Yêu cầu truy cập
		admin.GET("/access-requests", requests.ListRequests)
		admin.POST("/access-requests/:id/resolve", requests.ResolveRequest)

		admin.POST("/notifications", notifications.SendNotification)

		// Thống kê
		admin.GET("/metrics", stats.GetAdminMetrics)
		admin.GET("/metrics/export", stats.ExportAdminMetrics)
	}

	return r
}
