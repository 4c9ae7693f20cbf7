package config

import (
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
)

// SeedReferenceData inserts the scrap reason codes and ledger accounts the
// engine depends on. Safe to call on every boot.
func SeedReferenceData(db *gorm.DB) {
	reasons := []models.ScrapReason{
		{Code: "layer_shift", Label: "Layer shift"},
		{Code: "warping", Label: "Warping / bed detachment"},
		{Code: "stringing", Label: "Stringing / surface defect"},
		{Code: "nozzle_clog", Label: "Nozzle clog / extrusion failure"},
		{Code: "material_defect", Label: "Defective material"},
		{Code: "operator_error", Label: "Operator error"},
		{Code: "failed_qc", Label: "Failed quality check"},
		{Code: "other", Label: "Other"},
	}
	for _, r := range reasons {
		var cnt int64
		db.Model(&models.ScrapReason{}).Where("code = ?", r.Code).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	accounts := []models.LedgerAccount{
		{Code: models.AccountWIP, Name: "Work In Process"},
		{Code: models.AccountScrapExpense, Name: "Scrap Expense"},
		{Code: models.AccountRawMaterials, Name: "Raw Materials"},
		{Code: models.AccountFinishedGood, Name: "Finished Goods"},
	}
	for _, a := range accounts {
		var cnt int64
		db.Model(&models.LedgerAccount{}).Where("code = ?", a.Code).Count(&cnt)
		if cnt == 0 {
			db.Create(&a)
		}
	}
}
