package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chair-reservation-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	UpsertChairs(ctx context.Context, chairs []model.Chair) error
	ListChairs(ctx context.Context) ([]model.Chair, error)

	ListReservations(ctx context.Context) ([]model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	PurgeReservationsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	ListOpenOccupancies(ctx context.Context) ([]model.OccupancyOpen, error)
	OpenOccupancy(ctx context.Context, o model.OccupancyOpen) error
	CloseOccupancy(ctx context.Context, o model.OccupancyOpen, end time.Time, minutes, fee int64) error

	CreateProfile(ctx context.Context, p *model.Profile) error
	ProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	ProfileByID(ctx context.Context, id string) (*model.Profile, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpsertChairs makes the chairs table match the configured pool names.
func (s *gormStore) UpsertChairs(ctx context.Context, chairs []model.Chair) error {
	if len(chairs) == 0 {
		return nil
	}
	existing, err := s.fetchAllChairs(ctx)
	if err != nil {
		log.Printf("Warning: could not pre-fetch chairs: %v", err)
		existing = make(map[int64]model.Chair)
	}

	var chairsToUpsert []model.Chair
	for _, c := range chairs {
		if old, ok := existing[c.ID]; ok && old.DisplayName == c.DisplayName {
			continue
		}
		chairsToUpsert = append(chairsToUpsert, c)
	}
	if len(chairsToUpsert) == 0 {
		return nil
	}

	log.Printf("Batch upserting %d chairs...", len(chairsToUpsert))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}).Create(&chairsToUpsert).Error
	})
}

func (s *gormStore) ListChairs(ctx context.Context) ([]model.Chair, error) {
	var chairs []model.Chair
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&chairs).Error; err != nil {
		return nil, fmt.Errorf("%w: list chairs: %v", ErrPersistence, err)
	}
	return chairs, nil
}

// ListReservations returns every stored reservation ordered by start time.
func (s *gormStore) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := s.db.WithContext(ctx).Order("start_at ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list reservations: %v", ErrPersistence, err)
	}
	return out, nil
}

func (s *gormStore) InsertReservation(ctx context.Context, r *model.Reservation) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %w: reservation %s", ErrPersistence, ErrDuplicate, r.ID)
		}
		return fmt.Errorf("%w: insert reservation for chair %d: %v", ErrPersistence, r.ChairID, err)
	}
	return nil
}

func (s *gormStore) DeleteReservation(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Reservation{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("%w: delete reservation %s: %v", ErrPersistence, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) PurgeReservationsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("end_at < ?", cutoff).Delete(&model.Reservation{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: purge reservations: %v", ErrPersistence, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) ListOpenOccupancies(ctx context.Context) ([]model.OccupancyOpen, error) {
	var open []model.OccupancyOpen
	if err := s.db.WithContext(ctx).Find(&open).Error; err != nil {
		return nil, fmt.Errorf("%w: list open occupancies: %v", ErrPersistence, err)
	}
	return open, nil
}

func (s *gormStore) OpenOccupancy(ctx context.Context, o model.OccupancyOpen) error {
	if err := s.db.WithContext(ctx).Create(&o).Error; err != nil {
		return fmt.Errorf("%w: open occupancy for chair %d: %v", ErrPersistence, o.ChairID, err)
	}
	return nil
}

// CloseOccupancy archives the session and removes the open row in one transaction.
func (s *gormStore) CloseOccupancy(ctx context.Context, o model.OccupancyOpen, end time.Time, minutes, fee int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := archiveRecord(tx, o, end, minutes, fee); err != nil {
			return err
		}
		if err := tx.Delete(&model.OccupancyOpen{}, o.ChairID).Error; err != nil {
			return fmt.Errorf("failed to delete open occupancy record for chair %d: %w", o.ChairID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// archiveRecord creates a historical record of a completed session.
func archiveRecord(tx *gorm.DB, open model.OccupancyOpen, end time.Time, minutes, fee int64) error {
	historyRecord := model.OccupancyHistory{
		ChairID:     open.ChairID,
		UserID:      open.UserID,
		PeriodStart: open.StartedAt,
		PeriodEnd:   end,
		Minutes:     minutes,
		Fee:         fee,
	}
	if err := tx.Create(&historyRecord).Error; err != nil {
		return fmt.Errorf("failed to archive occupancy record for chair %d: %w", open.ChairID, err)
	}
	return nil
}

func (s *gormStore) CreateProfile(ctx context.Context, p *model.Profile) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("profile %s: %w", p.Email, ErrDuplicate)
		}
		return fmt.Errorf("%w: create profile: %v", ErrPersistence, err)
	}
	return nil
}

func (s *gormStore) ProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return s.firstProfile(ctx, "email = ?", email)
}

func (s *gormStore) ProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	return s.firstProfile(ctx, "id = ?", id)
}

func (s *gormStore) firstProfile(ctx context.Context, query string, arg any) (*model.Profile, error) {
	var p model.Profile
	err := s.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup profile: %v", ErrPersistence, err)
	}
	return &p, nil
}

func (s *gormStore) fetchAllChairs(ctx context.Context) (map[int64]model.Chair, error) {
	var chairs []model.Chair
	if err := s.db.WithContext(ctx).Find(&chairs).Error; err != nil {
		return nil, err
	}
	chairMap := make(map[int64]model.Chair, len(chairs))
	for _, c := range chairs {
		chairMap[c.ID] = c
	}
	return chairMap, nil
}
