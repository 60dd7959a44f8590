package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bizdesk/internal/config"
	"bizdesk/internal/models"
	console "bizdesk/internal/utils/logger"
)

var DB *gorm.DB
var log = console.New("DB")

func Connect(cfg *config.Config) error {
	dsn := cfg.Database.DSN()

	log.Info("Connecting to database %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	maxRetries := 5
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:                                   logger.Default.LogMode(logger.Warn),
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
			AllowGlobalUpdate:                        false,
			TranslateError:                           true,
		})
		if err == nil {
			log.Success("Connected to database")

			sqlDB, err := DB.DB()
			if err != nil {
				return log.Error("Failed to get underlying *sql.DB instance", err)
			}

			sqlDB.SetMaxOpenConns(100)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxLifetime(time.Hour)
			sqlDB.SetConnMaxIdleTime(time.Minute * 30)

			if err := Migrate(DB); err != nil {
				return log.Error("Failed to run migrations", err)
			}

			log.Success("Migrations completed")

			return nil
		}
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Second * 5)
	}
	return log.Error("Failed to connect to database", fmt.Errorf("gave up after %d attempts: %w", maxRetries, err))
}

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		// Identity
		&models.User{},
		&models.Workspace{},
		&models.Permission{},
		&models.AuthorizedEmail{},

		// Customers
		&models.ImportBatch{},
		&models.Customer{},
		&models.StudentGroup{},
		&models.Student{},

		// Invoicing
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.CompanySettings{},

		// Budget & finance
		&models.BudgetIncome{},
		&models.Outgoing{},
		&models.OutgoingOverride{},
		&models.FinanceAccount{},
		&models.AccountBalance{},

		// Flow, food, dashboard
		&models.Task{},
		&models.Idea{},
		&models.Recipe{},
		&models.ShoppingList{},
		&models.ShoppingItem{},
		&models.DashboardLayout{},
	}
}

// uniqueIndexes are composite indexes over columns that live in embedded
// structs, where gorm tags cannot name them together.
var uniqueIndexes = []struct{ name, table, columns string }{
	{"idx_invoices_workspace_number", "invoices", "workspace_id, number"},
}

// Migrate creates or updates all tables inside one transaction.
func Migrate(gdb *gorm.DB) error {
	log.Info("Running migrations...")
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(Models()...); err != nil {
			return err
		}
		for _, idx := range uniqueIndexes {
			stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}
		return nil
	})
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}
