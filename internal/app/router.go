package app

import (
	"lingua_lms_backend/docs"
	"lingua_lms_backend/internal/config"
	"lingua_lms_backend/internal/middleware"
	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.GET("/me", c.auth.Me)

		a.registerCourseRoutes(authGroup, c)
		a.registerNotebookRoutes(authGroup, c)

		// Websocket clients authenticate with ?token= because they
		// cannot set headers.
		authGroup.GET("/feed/ws", c.feed.Connect)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerCourseRoutes(rg *gin.RouterGroup, c *controllers) {
	// Reads are open to every authenticated role.
	rg.GET("/courses", c.course.ListCourses)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.GET("/meetings", c.meeting.ListMeetings)

	instructor := rg.Group("/")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.GET("/instructor-id", c.course.InstructorID)
		instructor.GET("/route/resolve", c.course.ResolveRoute)

		instructor.PUT("/courses/:id", c.course.UpdateCourse)
		instructor.POST("/courses/:id/weeks", c.course.AddWeek)
		instructor.PUT("/courses/:id/weeks/:weekId", c.course.UpdateWeek)
		instructor.DELETE("/courses/:id/weeks/:weekId", c.course.RemoveWeek)
		instructor.POST("/courses/:id/weeks/:weekId/days", c.course.AddDay)
		instructor.PUT("/courses/:id/weeks/:weekId/days/:dayId", c.course.RenameDay)
		instructor.DELETE("/courses/:id/weeks/:weekId/days/:dayId", c.course.RemoveDay)

		instructor.POST("/courses/:id/items", c.course.AddItem)
		instructor.PUT("/courses/:id/items/:itemId", c.course.UpdateItem)
		// Item removal needs the location in the body, so it cannot be
		// a bare DELETE.
		instructor.POST("/courses/:id/items/:itemId/remove", c.course.RemoveItem)

		instructor.GET("/exams", c.exam.ListExams)
		instructor.GET("/exams/:id", c.exam.GetExam)
		instructor.POST("/exams", c.exam.SaveExam)
		instructor.DELETE("/exams/:id", c.exam.DeleteExam)

		instructor.POST("/meetings", c.meeting.CreateMeeting)
	}

	manager := rg.Group("/")
	manager.Use(middleware.RoleMiddleware(model.Manager))
	{
		manager.POST("/courses", c.course.CreateCourse)
		manager.POST("/courses/import", c.course.ImportCourses)
		manager.POST("/courses/seed", c.course.Seed)
	}
}

func (a *App) registerNotebookRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/notebooks", c.notebook.ListNotebooks)
	rg.POST("/notebooks", c.notebook.CreateNotebook)
	rg.GET("/notebooks/:id", c.notebook.GetNotebook)
	rg.PUT("/notebooks/:id", c.notebook.UpdateNotebook)
	rg.DELETE("/notebooks/:id", c.notebook.DeleteNotebook)

	rg.GET("/notebooks/:id/sources", c.notebook.ListSources)
	rg.POST("/notebooks/:id/sources", c.notebook.AddSource)
	rg.POST("/notebooks/:id/sources/upload", c.notebook.UploadSource)
	rg.PUT("/notebooks/:id/sources/:sourceId", c.notebook.UpdateSource)
	rg.DELETE("/notebooks/:id/sources/:sourceId", c.notebook.DeleteSource)

	rg.GET("/notebooks/:id/notes", c.notebook.ListNotes)
	rg.POST("/notebooks/:id/notes", c.notebook.CreateNote)
	rg.PUT("/notebooks/:id/notes/:noteId", c.notebook.UpdateNote)
	rg.DELETE("/notebooks/:id/notes/:noteId", c.notebook.DeleteNote)

	rg.GET("/notebooks/:id/chat", c.chat.History)
	rg.POST("/notebooks/:id/chat", c.chat.Send)

	rg.POST("/notebooks/:id/generate", c.generation.Trigger)
	rg.GET("/notebooks/:id/generations", c.generation.ListJobs)
}
