package core

import (
	"context"
	"fmt"

	"rentledger/pkg/domain"
)

// NewRoomOccupancyRule returns the in-transaction rule enforcing that at most
// one tenant holds any given room. The constraint lives at the store boundary
// so callers cannot race past it.
func NewRoomOccupancyRule() domain.Rule {
	return roomOccupancyRule{}
}

type roomOccupancyRule struct{}

func (roomOccupancyRule) Name() string { return "room_occupancy" }

func (roomOccupancyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	occupants := make(map[string][]string)
	for _, tenant := range view.ListTenants() {
		if tenant.RoomID == "" {
			continue
		}
		occupants[tenant.RoomID] = append(occupants[tenant.RoomID], tenant.Name)
	}

	res := domain.Result{}
	for roomID, names := range occupants {
		if len(names) <= 1 {
			continue
		}
		room, _ := view.FindRoom(roomID)
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "room_occupancy",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("room %s (%s) assigned to %d tenants", room.Name, roomID, len(names)),
			Entity:   domain.EntityRoom,
			EntityID: roomID,
		})
	}
	return res, nil
}
