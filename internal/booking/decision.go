package booking

// Action is what selecting a chair leads to.
type Action string

const (
	ActionCheckOut                   Action = "check_out"
	ActionGuestCheckInWithCredential Action = "guest_check_in"
	ActionDirectCheckIn              Action = "direct_check_in"
	ActionModifyReservation          Action = "modify_reservation"
	ActionCreateReservation          Action = "create_reservation"
	ActionUnavailable                Action = "unavailable"
)

// Facts is everything the decision depends on, observed at one instant.
type Facts struct {
	IsGuest        bool
	OccupiedBySelf bool
	Occupied       bool // by anyone, self included
	HasLive        bool // a reservation on the chair contains now
	HasOwn         bool // the actor holds an upcoming reservation on the chair
}

type rule struct {
	when   func(Facts) bool
	action Action
}

// Rows are checked in order; the first match wins.
var decisionTable = []rule{
	{func(f Facts) bool { return f.OccupiedBySelf }, ActionCheckOut},
	{func(f Facts) bool { return f.IsGuest && f.Occupied }, ActionUnavailable},
	{func(f Facts) bool { return f.IsGuest && f.HasLive }, ActionGuestCheckInWithCredential},
	{func(f Facts) bool { return f.IsGuest }, ActionDirectCheckIn},
	{func(f Facts) bool { return f.HasOwn }, ActionModifyReservation},
	{func(f Facts) bool { return true }, ActionCreateReservation},
}

// Decide maps facts to an action.
func Decide(f Facts) Action {
	for _, r := range decisionTable {
		if r.when(f) {
			return r.action
		}
	}
	return ActionUnavailable
}
