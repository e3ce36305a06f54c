package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"homekitchen/internal/cart"
	"homekitchen/internal/catalog"
	"homekitchen/internal/config"
	"homekitchen/internal/database"
	"homekitchen/internal/events"
	"homekitchen/internal/favorites"
	"homekitchen/internal/handlers"
	"homekitchen/internal/middleware"
	"homekitchen/internal/orders"
	"homekitchen/internal/pricing"
	"homekitchen/internal/store"
)

func main() {
	config.Load()
	env := config.AppEnv

	if env.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	client, err := database.Connect(env.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(env.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsurePurchaseIndexes(db); err != nil {
		log.Printf("⚠️ purchase index warning: %v", err)
	}
	if err := database.EnsureCookIndexes(db); err != nil {
		log.Printf("⚠️ cook index warning: %v", err)
	}

	users := store.NewUsers(db)
	cooks := store.NewCooks(db)
	purchases := store.NewPurchases(db)

	var publisher orders.Publisher = events.NopPublisher{}
	if env.AMQPURL != "" {
		p, err := events.Dial(env.AMQPURL)
		if err != nil {
			log.Printf("⚠️ amqp unavailable, purchase events disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	cache := catalog.NewCache(catalog.NewRedisClient(env.RedisAddr), "homekitchen", env.CatalogCacheTTL)
	if cache == nil {
		log.Println("REDIS_ADDR not set, catalog cache disabled")
	}

	carts := cart.NewService(store.NewCarts(db), env.RequestTimeout)
	authority := pricing.NewAuthority(cooks, env.RequestTimeout)
	kitchens := catalog.NewService(cooks, cache, env.RequestTimeout)
	orderSvc := orders.NewService(purchases, authority, publisher, env.RequestTimeout)
	favs := favorites.NewService(users, kitchens, env.RequestTimeout)

	r := gin.Default()

	api := r.Group("/api")
	api.GET("/health", handlers.Health(client))

	usersAPI := api.Group("/users")
	{
		usersAPI.POST("/register", handlers.Register(users, env.JWTSecret, env.AccessTokenTTL))
		usersAPI.POST("/login", handlers.Login(users, env.JWTSecret, env.AccessTokenTTL))
		usersAPI.GET("/me", middleware.UserAuth(env.JWTSecret), handlers.GetMe(users))
		usersAPI.GET("/order-history", middleware.UserAuth(env.JWTSecret), handlers.PurchaseHistory(orderSvc))
		usersAPI.GET("/favorites", middleware.UserAuth(env.JWTSecret), handlers.GetFavorites(favs))
	}

	cooksAPI := api.Group("/cooks")
	{
		cooksAPI.GET("", handlers.ListKitchens(kitchens))
		cooksAPI.GET("/:id", handlers.GetKitchen(kitchens))
		cooksAPI.POST("", middleware.StoreOwnerAuth(env.JWTSecret), handlers.CreateKitchen(kitchens))
		cooksAPI.POST("/:id/menu", middleware.StoreOwnerAuth(env.JWTSecret), handlers.AddMenuItem(kitchens))
		cooksAPI.PUT("/:id/menu/:dishName", middleware.StoreOwnerAuth(env.JWTSecret), handlers.UpdateMenuItem(kitchens))
	}

	purchasesAPI := api.Group("/purchases")
	purchasesAPI.Use(middleware.UserAuth(env.JWTSecret))
	{
		purchasesAPI.GET("/cart", handlers.GetCart(carts))
		purchasesAPI.GET("/cart/total", handlers.CartTotal(carts))
		purchasesAPI.GET("/cart/quote", handlers.CartQuote(orderSvc))
		purchasesAPI.POST("/cart", handlers.AddToCart(carts))
		purchasesAPI.PUT("/cart", handlers.UpdateCartItem(carts))
		purchasesAPI.DELETE("/cart", handlers.RemoveFromCart(carts))
		purchasesAPI.DELETE("/cart/clear", handlers.ClearCart(carts))

		purchasesAPI.POST("/complete", handlers.CompletePurchase(orderSvc))
		purchasesAPI.POST("/purchase", handlers.CompletePurchase(orderSvc))
		purchasesAPI.POST("", handlers.CreatePurchase(orderSvc))
		purchasesAPI.GET("/history", handlers.PurchaseHistory(orderSvc))

		purchasesAPI.POST("/favorites", handlers.AddFavorite(favs))
		purchasesAPI.DELETE("/favorites", handlers.RemoveFavorite(favs))

		purchasesAPI.GET("/kitchen/:kitchenId/purchases", middleware.StoreOwnerAuth(env.JWTSecret), handlers.KitchenPurchases(purchases, kitchens))
		purchasesAPI.GET("/kitchen/:kitchenId/stats", middleware.StoreOwnerAuth(env.JWTSecret), handlers.KitchenStats(purchases, kitchens))

		purchasesAPI.GET("/:purchaseId", handlers.GetPurchase(orderSvc))
		purchasesAPI.POST("/:purchaseId/cancel", handlers.CancelPurchase(orderSvc))
		purchasesAPI.PATCH("/:purchaseId/status", handlers.UpdatePurchaseStatus(orderSvc, kitchens))
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(env.JWTSecret))
	{
		admin.GET("/kitchens/:kitchenId/purchases", handlers.KitchenPurchases(purchases, kitchens))
		admin.GET("/kitchens/:kitchenId/stats", handlers.KitchenStats(purchases, kitchens))
		admin.PATCH("/purchases/:purchaseId/status", handlers.UpdatePurchaseStatus(orderSvc, kitchens))
	}

	if err := r.Run(":" + env.Port); err != nil {
		log.Fatal(err)
	}
}
