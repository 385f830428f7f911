package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type cartLineRecord struct {
	ID            uint `gorm:"primaryKey"`
	Position      int  `gorm:"index"`
	ProductID     *int64
	Name          string
	UnitPrice     string
	Image         string
	Size          string
	SizeID        *int64
	Quantity      int
	ReservationID *string
	ReservedUntil *time.Time
}

func (cartLineRecord) TableName() string { return "cart_lines" }

type sessionRecord struct {
	ID        uint `gorm:"primaryKey"`
	SessionID string
}

func (sessionRecord) TableName() string { return "session_identity" }

// SQLiteStore mirrors the cart into a local sqlite file so it survives
// restarts of the host application.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLite opens (and migrates) the mirror database at the given path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite mirror: %w", err)
	}
	if err := db.AutoMigrate(&cartLineRecord{}, &sessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite mirror: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LoadLines(ctx context.Context) ([]types.CartLine, error) {
	var records []cartLineRecord
	if err := s.db.WithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load mirrored cart: %w", err)
	}
	lines := make([]types.CartLine, 0, len(records))
	for _, record := range records {
		price, err := decimal.NewFromString(record.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("parse mirrored unit price %q: %w", record.UnitPrice, err)
		}
		lines = append(lines, types.CartLine{
			ProductID:     record.ProductID,
			Name:          record.Name,
			UnitPrice:     price,
			Image:         record.Image,
			Size:          record.Size,
			SizeID:        record.SizeID,
			Quantity:      record.Quantity,
			ReservationID: record.ReservationID,
			ReservedUntil: record.ReservedUntil,
		})
	}
	return lines, nil
}

func (s *SQLiteStore) SaveLines(ctx context.Context, lines []types.CartLine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&cartLineRecord{}).Error; err != nil {
			return fmt.Errorf("clear mirrored cart: %w", err)
		}
		if len(lines) == 0 {
			return nil
		}
		records := make([]cartLineRecord, 0, len(lines))
		for i, line := range lines {
			records = append(records, cartLineRecord{
				Position:      i,
				ProductID:     line.ProductID,
				Name:          line.Name,
				UnitPrice:     line.UnitPrice.String(),
				Image:         line.Image,
				Size:          line.Size,
				SizeID:        line.SizeID,
				Quantity:      line.Quantity,
				ReservationID: line.ReservationID,
				ReservedUntil: line.ReservedUntil,
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("write mirrored cart: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) LoadSessionID(ctx context.Context) (string, error) {
	var record sessionRecord
	err := s.db.WithContext(ctx).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session id: %w", err)
	}
	return record.SessionID, nil
}

func (s *SQLiteStore) SaveSessionID(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&sessionRecord{}).Error; err != nil {
			return fmt.Errorf("clear session id: %w", err)
		}
		if err := tx.Create(&sessionRecord{SessionID: sessionID}).Error; err != nil {
			return fmt.Errorf("write session id: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
