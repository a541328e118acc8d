package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helloneovia/immocible-sub000/internal/config"
	"github.com/helloneovia/immocible-sub000/internal/handlers"
	"github.com/helloneovia/immocible-sub000/internal/middleware"
	"github.com/helloneovia/immocible-sub000/internal/payments"
	"github.com/helloneovia/immocible-sub000/internal/repository"
	"github.com/helloneovia/immocible-sub000/internal/services"
	chatws "github.com/helloneovia/immocible-sub000/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) error {
	userRepo := repository.NewUserRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	listingRepo := repository.NewListingRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	unlockRepo := repository.NewUnlockRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	settingsService := services.NewSettingsService(settingsRepo)
	matchService := services.NewMatchService(searchRepo, listingRepo, matchRepo)
	disclosureService := services.NewDisclosureService(userRepo, searchRepo, unlockRepo, settingsService)

	stripeClient := payments.NewClient(cfg.StripeAPIBase, cfg.StripeSecretKey)
	paymentService := services.NewPaymentService(
		db,
		stripeClient,
		unlockRepo,
		paymentRepo,
		userRepo,
		searchRepo,
		settingsService,
		cfg.AppBaseURL,
	)

	var notifier services.MessageNotifier = services.LogNotifier{}
	if cfg.MailerAPIBase != "" && cfg.MailerAPIKey != "" {
		notifier = services.NewMailNotifier(cfg.MailerAPIBase, cfg.MailerAPIKey, cfg.MailerFrom, cfg.AppBaseURL)
	}

	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo, settingsService, notifier)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(disclosureService)
	searchHandler := handlers.NewSearchHandler(searchRepo, matchService)
	listingHandler := handlers.NewListingHandler(listingRepo, matchService)
	matchHandler := handlers.NewMatchHandler(matchService)
	unlockHandler := handlers.NewUnlockHandler(paymentService, unlockRepo)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	buyers := authProtected.Group("/buyers")
	buyers.Get("/:id/profile", profileHandler.GetBuyerProfile)

	searches := authProtected.Group("/searches")
	searches.Put("", searchHandler.UpsertSearch)
	searches.Get("", searchHandler.GetSearch)
	searches.Delete("", searchHandler.DeactivateSearch)

	listings := authProtected.Group("/listings")
	listings.Post("", listingHandler.CreateListing)
	listings.Get("", listingHandler.ListMyListings)
	listings.Get("/:id", listingHandler.GetListing)
	listings.Put("/:id", listingHandler.UpdateListing)

	authProtected.Get("/matches", matchHandler.ListMatches)

	unlocks := authProtected.Group("/unlocks")
	unlocks.Get("", unlockHandler.ListUnlocks)
	unlocks.Post("/start", unlockHandler.StartUnlock)
	unlocks.Post("/verify", unlockHandler.VerifyUnlock)

	authProtected.Post("/payments/:sessionID/refund", unlockHandler.RefundPayment)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.InitiateConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	return registerDocsRoutes(app, cfg)
}
