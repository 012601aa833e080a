package database

import (
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

// uniqueIndexes back the (job, staff) and open check-in constraints; migration fails without them.
var uniqueIndexes = []struct {
	model any
	name  string
}{
	{&models.Assignment{}, "idx_assignments_active_key"},
	{&models.CheckIn{}, "idx_check_ins_open_key"},
	{&models.CheckOut{}, "idx_check_outs_check_in_id"},
	{&models.IdempotencyRecord{}, "idx_idem_key_user"},
}

// Migrate creates or updates every table and verifies the unique indexes the services rely on.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	for _, idx := range uniqueIndexes {
		if !db.Migrator().HasIndex(idx.model, idx.name) {
			utils.ErrorLogger.Errorf("Missing index %s", idx.name)
			return &MissingIndexError{Name: idx.name}
		}
		utils.InfoLogger.Debugf("Index verified: %s", idx.name)
	}

	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

type MissingIndexError struct {
	Name string
}

func (e *MissingIndexError) Error() string {
	return "missing unique index " + e.Name
}
