package main

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/routes"
	"github.com/MCTRACO/filaops-sub000/utils"
)

func main() {
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.RoutingStep{},
		&models.BOMItem{},
		&models.Machine{},
		&models.ProductionOrder{},
		&models.Operation{},
		&models.OperationMaterial{},
		&models.StockItem{},
		&models.ConsumptionTransaction{},
		&models.ScrapReason{},
		&models.ScrapRecord{},
		&models.LedgerAccount{},
		&models.LedgerEntry{},
		&models.LedgerLine{},
		&models.SalesOrder{},
		&models.SalesOrderLine{},
		&models.OutboxEffect{},
	)

	config.SeedReferenceData(config.DB)

	if s := os.Getenv("JWT_SECRET"); s != "" {
		utils.SecretKey = []byte(s)
	}

	r := gin.Default()
	routes.SetupRoutes(r)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "production execution API is running"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	_ = r.Run(":" + port)
}
