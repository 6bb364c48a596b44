package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"tourbook/internal/apperr"
	"tourbook/internal/config"
	"tourbook/internal/database"
	"tourbook/internal/email"
	"tourbook/internal/handlers"
	"tourbook/internal/middleware"
	"tourbook/internal/models"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureTourIndexes(db); err != nil {
		log.Printf("⚠️ tour index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureReviewIndexes(db); err != nil {
		log.Printf("⚠️ review index warning: %v", err)
	}
	if err := database.EnsureBookingIndexes(db); err != nil {
		log.Printf("⚠️ booking index warning: %v", err)
	}

	mailer := email.NewMailer(config.AppEnv)

	if config.AppEnv.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler(config.AppEnv.IsProduction()))
	r.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	}))
	r.LoadHTMLGlob("templates/*.html")
	r.Static("/public", "./public")

	secret := config.AppEnv.JWTSecret
	protect := middleware.Protect(db, secret)
	loggedIn := middleware.IsLoggedIn(db, secret)

	// rendered pages
	r.GET("/", loggedIn, handlers.Overview(db))
	r.GET("/tour/:slug", loggedIn, handlers.TourPage(db))
	r.GET("/login", loggedIn, handlers.LoginForm())
	r.GET("/me", protect, handlers.Account())

	// the payment webhook verifies the raw body itself, so it stays outside
	// the API body limit
	r.POST("/webhook-checkout", handlers.WebhookCheckout(db))

	api := r.Group("/api",
		middleware.RateLimit(config.AppEnv.RateLimit, config.AppEnv.RateWindow),
		middleware.BodyLimit(10<<10),
	)

	tours := handlers.Tours()
	users := handlers.Users()
	reviews := handlers.Reviews()
	bookings := handlers.Bookings()

	tourRoutes := api.Group("/v1/tours")
	{
		tourRoutes.GET("/top-5-cheap", handlers.AliasTopTours, tours.GetAll(db))
		tourRoutes.GET("/top-5-shortest", handlers.AliasShortestTours, tours.GetAll(db))
		tourRoutes.GET("/tour-stats", handlers.GetTourStats(db))
		tourRoutes.GET("/monthly-plan/:year",
			protect,
			middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide),
			handlers.GetMonthlyPlan(db))
		tourRoutes.GET("/tours-within/:distance/center/:latlng/unit/:unit", handlers.GetToursWithin(db))
		tourRoutes.GET("/distances/:latlng/unit/:unit", handlers.GetDistances(db))

		tourRoutes.GET("", tours.GetAll(db))
		tourRoutes.POST("",
			protect,
			middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide),
			tours.CreateOne(db))
		tourRoutes.GET("/:id", tours.GetOne(db))
		tourRoutes.PATCH("/:id",
			protect,
			middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide),
			tours.UpdateOne(db))
		tourRoutes.PATCH("/:id/images",
			protect,
			middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide),
			handlers.UploadTourImages(db))
		tourRoutes.DELETE("/:id",
			protect,
			middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide),
			tours.DeleteOne(db))

		nested := tourRoutes.Group("/:id/reviews", protect, handlers.ScopeToTour)
		nested.GET("", reviews.GetAll(db))
		nested.POST("", middleware.RestrictTo(models.RoleUser), reviews.CreateOne(db))
	}

	userRoutes := api.Group("/v1/users")
	{
		userRoutes.POST("/signup", handlers.Signup(db, mailer))
		userRoutes.POST("/login", handlers.Login(db))
		userRoutes.GET("/logout", handlers.Logout())
		userRoutes.POST("/forgotPassword", handlers.ForgotPassword(db, mailer))
		userRoutes.PATCH("/resetPassword/:token", handlers.ResetPassword(db))

		authed := userRoutes.Group("", protect)
		authed.PATCH("/updateMyPassword", handlers.UpdatePassword(db))
		authed.GET("/me", handlers.GetMe(), users.GetOne(db))
		authed.PATCH("/updateMe", handlers.UpdateMe(db))
		authed.DELETE("/deleteMe", handlers.DeleteMe(db))

		adminOnly := authed.Group("", middleware.RestrictTo(models.RoleAdmin))
		adminOnly.GET("", users.GetAll(db))
		adminOnly.POST("", handlers.CreateUser())
		adminOnly.GET("/:id", users.GetOne(db))
		adminOnly.PATCH("/:id", users.UpdateOne(db))
		adminOnly.DELETE("/:id", users.DeleteOne(db))
	}

	reviewRoutes := api.Group("/v1/reviews", protect)
	{
		reviewRoutes.GET("", reviews.GetAll(db))
		reviewRoutes.POST("", middleware.RestrictTo(models.RoleUser), reviews.CreateOne(db))
		reviewRoutes.GET("/:id", reviews.GetOne(db))
		reviewRoutes.PATCH("/:id",
			middleware.RestrictTo(models.RoleUser, models.RoleAdmin),
			reviews.UpdateOne(db))
		reviewRoutes.DELETE("/:id",
			middleware.RestrictTo(models.RoleUser, models.RoleAdmin),
			reviews.DeleteOne(db))
	}

	bookingRoutes := api.Group("/v1/bookings", protect)
	{
		bookingRoutes.GET("/checkout-session/:tourId", handlers.GetCheckoutSession(db))

		manage := bookingRoutes.Group("", middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide))
		manage.GET("", bookings.GetAll(db))
		manage.POST("", bookings.CreateOne(db))
		manage.GET("/:id", bookings.GetOne(db))
		manage.PATCH("/:id", bookings.UpdateOne(db))
		manage.DELETE("/:id", bookings.DeleteOne(db))
	}

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperr.NotFound(fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path)))
	})

	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal(err)
	}
}
