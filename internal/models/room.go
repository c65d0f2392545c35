package models

import "time"

// RoomType categorises teaching rooms.
type RoomType string

const (
	RoomClassroom  RoomType = "classroom"
	RoomLab        RoomType = "lab"
	RoomAuditorium RoomType = "auditorium"
	RoomSeminar    RoomType = "seminar"
)

// Room is a bookable teaching space.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RoomType  RoomType  `db:"room_type" json:"room_type"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Building  string    `db:"building" json:"building"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter captures supported filters for listing rooms.
type RoomFilter struct {
	RoomType  string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
