package flight

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusBooked     Status = "BOOKED"
	StatusCheckedIn  Status = "CHECKED_IN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

var transitions = map[Status][]Status{
	StatusOpen:       {StatusBooked, StatusCancelled, StatusNoShow},
	StatusBooked:     {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusBooked, StatusCheckedIn, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Closed statuses accept no further cart edits or bookings.
func (s Status) Closed() bool {
	return s == StatusCancelled || s == StatusNoShow
}

// Active flights hold their tee time and any assigned fleet resources.
func (s Status) Active() bool {
	switch s {
	case StatusOpen, StatusBooked, StatusCheckedIn, StatusInProgress:
		return true
	}
	return false
}
