package flight

import (
	"teesheet/internal/domain/member"
	"teesheet/internal/pkg/clock"
)

type PlayerRequest struct {
	Position    int    `json:"position" validate:"required,min=1,max=4"`
	Kind        string `json:"kind" validate:"required,oneof=member dependent guest walkup"`
	Ref         string `json:"ref" validate:"max=64"`
	DisplayName string `json:"display_name" validate:"max=120"`
}

func (r PlayerRequest) toInput() PlayerInput {
	return PlayerInput{
		Position:    r.Position,
		Kind:        member.Kind(r.Kind),
		Ref:         r.Ref,
		DisplayName: r.DisplayName,
	}
}

type BookRequest struct {
	Date    string          `json:"date" validate:"required,civildate"`
	TeeTime string          `json:"tee_time" validate:"required,hhmm"`
	Players []PlayerRequest `json:"players" validate:"max=4,dive"`
	Notes   string          `json:"notes" validate:"max=500"`
}

func (r BookRequest) toInput(courseID int64, editor string) BookInput {
	date, _ := clock.ParseDate(r.Date)
	t, _ := clock.ParseTimeOfDay(r.TeeTime)
	players := make([]PlayerInput, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.toInput())
	}
	return BookInput{
		CourseID: courseID,
		Date:     date,
		TeeTime:  t,
		Players:  players,
		Notes:    r.Notes,
		Editor:   editor,
	}
}

type AddPlayerRequest struct {
	Version int64 `json:"version" validate:"required,min=1"`
	PlayerRequest
}

type CheckInRequest struct {
	PayLater bool `json:"pay_later"`
}

type TransitionRequest struct {
	Version           int64  `json:"version" validate:"required,min=1"`
	Status            string `json:"status" validate:"required,oneof=OPEN BOOKED CHECKED_IN IN_PROGRESS COMPLETED CANCELLED NO_SHOW"`
	PayLaterPositions []int  `json:"pay_later_positions" validate:"max=4,dive,min=1,max=4"`
}

type ResourcesRequest struct {
	Version int64  `json:"version" validate:"required,min=1"`
	CartID  *int64 `json:"cart_id"`
	CaddyID *int64 `json:"caddy_id"`
}
