package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/gburiasco/UneedesAI/internal/ai"
	"github.com/gburiasco/UneedesAI/internal/auth"
	"github.com/gburiasco/UneedesAI/internal/extract"
	"github.com/gburiasco/UneedesAI/internal/limits"
	"github.com/gburiasco/UneedesAI/internal/models"
	"github.com/gburiasco/UneedesAI/internal/quiz"
	"github.com/gburiasco/UneedesAI/pkg/cache"
	"github.com/gburiasco/UneedesAI/pkg/database"

	"github.com/gorilla/mux"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	dbConfig := &database.Config{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}

	db, err := database.NewPostgresDB(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.Question{},
		&models.UserAnswer{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisCache := cache.NewRedisCache(os.Getenv("REDIS_ADDR"))

	ctx := context.Background()
	generator, err := ai.NewClient(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	defer generator.Close()

	authRepo := auth.NewRepository(db)
	limitsRepo := limits.NewRepository(db)
	quizRepo := quiz.NewRepository(db)

	jwtSecret := os.Getenv("JWT_SECRET")
	authService := auth.NewService(authRepo, jwtSecret)
	limitService := limits.NewService(limitsRepo)
	quizService := quiz.NewService(quizRepo, limitService, generator, extract.NewPDF(), redisCache)

	authHandler := auth.NewHandler(authService)
	quizHandler := quiz.NewHandler(quizService)

	router := mux.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{os.Getenv("FRONTEND_ORIGIN")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	handler := corsMiddleware.Handler(router)

	// Auth routes - no JWT required
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Generation is open to anonymous trials; a valid token upgrades the
	// request to a persisted, quota-tracked one.
	trialRouter := router.PathPrefix("/api/quiz").Subrouter()
	trialRouter.Use(auth.OptionalJWTMiddleware(jwtSecret))
	trialRouter.HandleFunc("/generate", quizHandler.Generate).Methods("POST", "OPTIONS")

	// Everything else needs an authenticated caller.
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.JWTMiddleware(jwtSecret))

	apiRouter.HandleFunc("/quiz/{fileID}/more", quizHandler.GenerateMore).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/quiz/answer", quizHandler.SaveAnswer).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/quiz/answers", quizHandler.GetAnswers).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/files", quizHandler.ListFiles).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/files/{fileID}/questions", quizHandler.ListQuestions).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/files/{fileID}/stats", quizHandler.GetStats).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/files/{fileID}/reset", quizHandler.ResetAnswers).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/files/{fileID}", quizHandler.DeleteFile).Methods("DELETE", "OPTIONS")

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port 8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server shutdown gracefully")
}
