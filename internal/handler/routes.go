package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker-api/internal/middleware"
	"github.com/noah-isme/assignment-tracker-api/internal/models"
)

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Auth        *AuthHandler
	Semesters   *SemesterHandler
	Assignments *AssignmentHandler
	Transfer    *TransferHandler
	Exports     *ExportJobHandler
	Metrics     *MetricsHandler

	Tokens middleware.TokenValidator
	Audit  middleware.AuditRecorder
	Logger *zap.Logger
}

// Register mounts every route on api. Exports may be nil when export jobs are disabled.
func (r Routes) Register(api *gin.RouterGroup) {
	auth := middleware.JWT(r.Tokens)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(r.Audit, r.Logger, action, resource)
	}

	authGroup := api.Group("/auth")
	authGroup.POST("/register", r.Auth.Register)
	authGroup.POST("/login", r.Auth.Login)
	authGroup.POST("/refresh", r.Auth.Refresh)
	authGroup.POST("/logout", auth, r.Auth.Logout)
	authGroup.GET("/me", auth, r.Auth.Me)

	semesters := api.Group("/semesters", auth)
	semesters.POST("", audit(models.AuditActionSemesterCreate, "semester"), r.Semesters.Create)
	semesters.GET("", middleware.WithResponseMeta(), r.Semesters.List)
	semesters.GET("/:id", r.Semesters.Get)
	semesters.DELETE("/:id", audit(models.AuditActionSemesterDelete, "semester"), r.Semesters.Delete)

	semesters.POST("/:id/assignments", r.Assignments.Create)
	semesters.POST("/:id/assignments/bulk", r.Assignments.BulkCreate)
	semesters.PUT("/:id/assignments/:assignmentId", r.Assignments.Update)
	semesters.DELETE("/:id/assignments/:assignmentId", r.Assignments.Delete)
	api.PATCH("/assignments/:assignmentId/status", auth, r.Assignments.UpdateStatus)

	semesters.POST("/:id/import", audit(models.AuditActionImport, "semester"), r.Transfer.Import)
	semesters.GET("/:id/export", audit(models.AuditActionExport, "semester"), r.Transfer.Export)

	if r.Exports != nil {
		semesters.POST("/:id/exports", audit(models.AuditActionExport, "export_job"), r.Exports.Create)
		api.GET("/exports/download/:token", r.Exports.Download)
		api.GET("/exports/:jobId", auth, r.Exports.Status)
	}

	if r.Metrics != nil {
		admin := api.Group("/admin", auth, middleware.RequireRoles(models.RoleAdmin))
		admin.GET("/metrics", r.Metrics.System)
	}
}
