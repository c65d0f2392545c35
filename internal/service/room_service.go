package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type roomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	Update(ctx context.Context, room *models.Room) error
}

// RoomService manages the bookable room inventory.
type RoomService struct {
	rooms     roomRepository
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService wires room management dependencies.
func NewRoomService(rooms roomRepository, audit auditSink, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{rooms: rooms, audit: audit, validator: validate, logger: logger}
}

// Create adds a room to the inventory; new rooms start active.
func (s *RoomService) Create(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	roomType := models.RoomType(req.RoomType)
	if roomType == "" {
		roomType = models.RoomClassroom
	}
	room := &models.Room{
		Name:     req.Name,
		RoomType: roomType,
		Capacity: req.Capacity,
		Building: req.Building,
		Active:   true,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionCreate, "rooms", room.ID, fmt.Sprintf("created room %s", room.Name))
	}
	return room, nil
}

// Get returns one room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// List returns rooms matching the filter.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 50
	}
	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// SetActive marks a room usable or unusable for future allocations. Existing
// slots keep their room; regenerate the affected batches to move them out.
func (s *RoomService) SetActive(ctx context.Context, id string, active bool) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.Active == active {
		return room, nil
	}
	room.Active = active
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	if s.audit != nil {
		s.audit.Record(ctx, models.AuditActionUpdate, "rooms", room.ID, fmt.Sprintf("active set to %t", active))
	}
	return room, nil
}
