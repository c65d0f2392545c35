package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

const roomColumns = "id, name, room_type, capacity, building, active, created_at, updated_at"

// RoomRepository provides persistence for rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	const query = `
INSERT INTO rooms (id, name, room_type, capacity, building, active, created_at, updated_at)
VALUES (:id, :name, :room_type, :capacity, :building, :active, :created_at, :updated_at)`

	now := time.Now().UTC()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, room); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// FindByID loads one room.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE id = $1", roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	return &room, nil
}

// ListActive returns active rooms in stable name order, the order the
// allocator scans them in.
func (r *RoomRepository) ListActive(ctx context.Context) ([]models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE active = TRUE ORDER BY name ASC", roomColumns)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	return rooms, nil
}

// List returns rooms with optional filtering and pagination.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	var conditions []string
	var args []interface{}

	if filter.RoomType != "" {
		conditions = append(conditions, fmt.Sprintf("room_type = $%d", len(args)+1))
		args = append(args, filter.RoomType)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR building ILIKE $%d)", len(args)+1, len(args)+2))
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM rooms"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "room_type": true, "capacity": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM rooms%s ORDER BY %s %s LIMIT %d OFFSET %d",
		roomColumns, where, sortBy, order, size, offset)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, total, nil
}

// Update rewrites the mutable fields of a room.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	const query = `
UPDATE rooms
SET name = $1, room_type = $2, capacity = $3, building = $4, active = $5, updated_at = $6
WHERE id = $7`
	room.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		room.Name, room.RoomType, room.Capacity, room.Building, room.Active, room.UpdatedAt, room.ID)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update room: room %s not found", room.ID)
	}
	return nil
}
