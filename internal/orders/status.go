package orders

type Status string

const (
	StatusPlaced    Status = "Placed"
	StatusDelivered Status = "Delivered"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Cancelled and Completed are terminal for status; reviews and extension
// negotiation still attach afterwards.
var validNext = map[Status]map[Status]bool{
	StatusPlaced:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered: {StatusDelivered: true, StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {StatusCancelled: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// statusesAllowing lists the states a transition to `to` is valid from; the
// store uses it to guard conditional updates.
func statusesAllowing(to Status) []Status {
	var out []Status
	for from, next := range validNext {
		if next[to] {
			out = append(out, from)
		}
	}
	return out
}
