package routes

import (
	"github.com/MCTRACO/filaops-sub000/controllers"
	"github.com/MCTRACO/filaops-sub000/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
		}

		// everything below needs a token
		authed := api.Group("/", middlewares.AuthMiddleware())

		products := authed.Group("/products")
		{
			products.GET("/", controllers.ListProducts)
			products.GET("/:id", controllers.GetProduct)
			products.POST("/", controllers.CreateProduct)
		}

		stock := authed.Group("/stock")
		{
			stock.GET("/", controllers.ListStock)
			stock.POST("/receipts", controllers.ReceiveStock)
		}

		machines := authed.Group("/machines")
		{
			machines.GET("/", controllers.ListMachines)
			machines.POST("/", controllers.CreateMachine)
			machines.GET("/:id/availability", controllers.MachineAvailability)
			machines.GET("/:id/schedule", controllers.MachineSchedule)
			machines.GET("/:id/next-slot", controllers.MachineNextSlot)
		}

		orders := authed.Group("/orders")
		{
			orders.GET("/", controllers.ListOrders)
			orders.POST("/", controllers.CreateOrder)
			orders.GET("/:id", controllers.GetOrder)
			orders.POST("/:id/release", controllers.ReleaseOrder)
			orders.POST("/:id/cancel", controllers.CancelOrder)
			orders.GET("/:id/scrap", controllers.OrderScrapRecords)

			orders.POST("/:id/operations/:opID/start", controllers.StartOperation)
			orders.POST("/:id/operations/:opID/complete", controllers.CompleteOperation)
			orders.POST("/:id/operations/:opID/skip", controllers.SkipOperation)
			orders.POST("/:id/operations/:opID/schedule", controllers.ScheduleOperation)
		}

		sales := authed.Group("/sales-orders")
		{
			sales.POST("/", controllers.CreateSalesOrder)
			sales.GET("/:id", controllers.GetSalesOrder)
			sales.POST("/:id/lines/:lineID/convert", controllers.ConvertSalesLine)
		}

		reports := authed.Group("/reports")
		{
			reports.GET("/scrap-summary", controllers.ScrapSummary)
		}

		authed.POST("/effects/process", controllers.ProcessEffects)
	}
}
