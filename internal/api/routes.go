package api

import (
	"net/http"
	"time"

	"alcyxob/fitness-planner/internal/domain" // Needed for RoleMiddleware
	"alcyxob/fitness-planner/internal/service"

	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth        service.AuthService
	Users       service.UserService
	Exercises   service.ExerciseService
	Recovery    service.RecoveryTracker
	Splits      service.SplitService
	Mesocycles  service.MesocycleService
	Frequencies service.FrequencyService
	Cache       service.WorkoutCacheService
	Now         func() time.Time // resolves "today" in date parameters
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	if svc.Now == nil {
		svc.Now = service.SystemClock
	}
	authHandler := NewAuthHandler(svc.Auth)
	profileHandler := NewProfileHandler(svc.Users)
	exerciseHandler := NewExerciseHandler(svc.Exercises)
	splitHandler := NewSplitHandler(svc.Splits)
	mesocycleHandler := NewMesocycleHandler(svc.Mesocycles)
	frequencyHandler := NewFrequencyHandler(svc.Frequencies)
	workoutHandler := NewWorkoutHandler(svc.Cache, svc.Recovery, svc.Now)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", profileHandler.GetMe)
		protected.PUT("/me/profile", profileHandler.UpdateProfile)
		protected.PUT("/me/preferences", profileHandler.UpdatePreferences)

		protected.GET("/splits", splitHandler.ListSplits)
		protected.GET("/splits/recommendations", splitHandler.Recommend)

		scheduleGroup := protected.Group("/schedule")
		{
			scheduleGroup.GET("", splitHandler.GetSchedule)
			scheduleGroup.PUT("", splitHandler.SaveSchedule)
			scheduleGroup.POST("/validate", splitHandler.ValidateSchedule)
			scheduleGroup.POST("/generate", splitHandler.GenerateSchedule)
		}

		mesocycleGroup := protected.Group("/mesocycles")
		{
			mesocycleGroup.POST("", mesocycleHandler.CreateMesocycle)
			mesocycleGroup.GET("", mesocycleHandler.History)
			mesocycleGroup.GET("/active", mesocycleHandler.GetActive)
			mesocycleGroup.GET("/active/progression", mesocycleHandler.CheckProgression)
			mesocycleGroup.GET("/active/progress", mesocycleHandler.Progress)
			mesocycleGroup.POST("/active/auto-progress", mesocycleHandler.AutoProgress)
			mesocycleGroup.POST("/active/complete", mesocycleHandler.Complete)
			mesocycleGroup.POST("/active/pause", mesocycleHandler.Pause)
			mesocycleGroup.POST("/paused/resume", mesocycleHandler.Resume)
		}

		protected.GET("/frequency-changes", frequencyHandler.ListChanges)
		protected.POST("/frequency-changes/:id/decision", frequencyHandler.ApplyDecision)

		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.GET("/upcoming", workoutHandler.ListUpcoming)
			workoutGroup.POST("/regenerate", workoutHandler.Regenerate)
			workoutGroup.GET("/:date", workoutHandler.GetWorkout)
			workoutGroup.POST("/:date/transfer", workoutHandler.Transfer)
		}
		protected.POST("/plans/:date/complete", workoutHandler.CompletePlan)
		protected.GET("/status/:date", workoutHandler.DailyStatus)
		protected.GET("/recovery", workoutHandler.GetRecovery)
		protected.POST("/recovery", workoutHandler.RecordTraining)

		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.GetExercises)
			exerciseGroup.POST("", RoleMiddleware(domain.RoleAdmin), exerciseHandler.CreateExercise)
		}

		// Cross-user batch operations, also run by the worker.
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.GET("/sweep/incompatible", frequencyHandler.DetectIncompatible)
			adminGroup.POST("/sweep/migrate", frequencyHandler.MigrateAll)
			adminGroup.POST("/cache/warm", workoutHandler.WarmAll)
		}
	}
}
