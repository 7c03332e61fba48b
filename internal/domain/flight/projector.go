package flight

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"teesheet/internal/domain/block"
	"teesheet/internal/domain/member"
	"teesheet/internal/domain/schedule"
	"teesheet/internal/pkg/clock"
)

// View is one row of the tee sheet as terminals render it.
type View struct {
	FlightID    *uuid.UUID          `json:"flight_id,omitempty"`
	CourseID    int64               `json:"course_id"`
	Date        string              `json:"date"`
	TeeTime     clock.TimeOfDay     `json:"tee_time"`
	Status      Status              `json:"status"`
	SlotStatus  schedule.SlotStatus `json:"slot_status,omitempty"`
	BlockType   block.Type          `json:"block_type,omitempty"`
	BlockReason string              `json:"block_reason,omitempty"`
	OffGrid     bool                `json:"off_grid"`
	Players     []PlayerView        `json:"players"`
	Notes       string              `json:"notes,omitempty"`
	CartID      *int64              `json:"cart_id,omitempty"`
	CaddyID     *int64              `json:"caddy_id,omitempty"`
	Version     int64               `json:"version"`
	CartVersion int64               `json:"cart_version"`
}

type PlayerView struct {
	PlayerSlotID uuid.UUID   `json:"player_slot_id"`
	Position     int         `json:"position"`
	Kind         member.Kind `json:"kind"`
	Ref          string      `json:"ref,omitempty"`
	Name         string      `json:"name"`
	Handicap     *float64    `json:"handicap,omitempty"`
	CheckedIn    bool        `json:"checked_in"`
	CheckedInAt  *time.Time  `json:"checked_in_at,omitempty"`
	PayLater     bool        `json:"pay_later"`
}

// Project merges the generated grid with persisted flights. Booking data wins
// over configuration: a flight whose time left the grid is still rendered at
// its own time, flagged off_grid. When a time has both an active flight and
// closed ones, the active flight is shown.
func Project(sheet *schedule.Sheet, flights []Flight, people map[string]member.Person) []View {
	byTime := make(map[clock.TimeOfDay]*Flight, len(flights))
	for i := range flights {
		f := &flights[i]
		if cur, ok := byTime[f.TeeTime]; ok && !prefer(f, cur) {
			continue
		}
		byTime[f.TeeTime] = f
	}

	views := make([]View, 0, len(sheet.Slots)+len(byTime))
	seen := make(map[clock.TimeOfDay]bool, len(sheet.Slots))
	for _, slot := range sheet.Slots {
		seen[slot.TeeTime] = true
		v := View{
			CourseID:    sheet.CourseID,
			Date:        sheet.Date,
			TeeTime:     slot.TeeTime,
			Status:      StatusOpen,
			SlotStatus:  slot.Status,
			BlockType:   slot.BlockType,
			BlockReason: slot.BlockReason,
			Players:     []PlayerView{},
		}
		if f, ok := byTime[slot.TeeTime]; ok {
			fill(&v, f, people)
		}
		views = append(views, v)
	}
	for t, f := range byTime {
		if seen[t] {
			continue
		}
		v := View{CourseID: sheet.CourseID, Date: sheet.Date, TeeTime: t, OffGrid: true}
		fill(&v, f, people)
		views = append(views, v)
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i].TeeTime < views[j].TeeTime })
	return views
}

// prefer reports whether a should be shown instead of b at the same time.
func prefer(a, b *Flight) bool {
	if a.Status.Active() != b.Status.Active() {
		return a.Status.Active()
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

func fill(v *View, f *Flight, people map[string]member.Person) {
	id := f.ID
	v.FlightID = &id
	v.Status = f.Status
	v.Notes = f.Notes
	v.CartID = f.CartID
	v.CaddyID = f.CaddyID
	v.Version = f.Version
	v.CartVersion = f.CartVersion

	players := append([]PlayerSlot(nil), f.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].Position < players[j].Position })
	v.Players = make([]PlayerView, 0, len(players))
	for _, p := range players {
		pv := PlayerView{
			PlayerSlotID: p.ID,
			Position:     p.Position,
			Kind:         p.RefKind,
			Ref:          p.RefID,
			Name:         p.DisplayName,
			CheckedIn:    p.CheckedInAt != nil,
			CheckedInAt:  p.CheckedInAt,
			PayLater:     p.PayLater,
		}
		if person, ok := people[p.RefID]; ok && p.RefID != "" {
			pv.Kind = person.Kind
			pv.Name = person.DisplayName
			pv.Handicap = person.Handicap
		}
		v.Players = append(v.Players, pv)
	}
}

// refsOf collects directory refs across flights for one Resolve call.
func refsOf(flights []Flight) []string {
	seen := map[string]bool{}
	var refs []string
	for _, f := range flights {
		for _, p := range f.Players {
			if p.RefID != "" && !seen[p.RefID] {
				seen[p.RefID] = true
				refs = append(refs, p.RefID)
			}
		}
	}
	return refs
}
