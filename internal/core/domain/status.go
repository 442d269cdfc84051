package domain

import "time"

// SubObjectStatus is the reported view of a sub-object at a point in time.
type SubObjectStatus struct {
	Name       string
	LastUpdate *time.Time
	Status     Status
	Paused     bool
}

type ObjectStatus struct {
	Name     string
	Paused   bool
	Children []SubObjectStatus
}

// LegacyStatus is the flat program list served to clients of the
// single-table API.
type LegacyStatus struct {
	InactivePrograms []string
	AllPrograms      []string
}

// StatusOf evaluates every child of o at now.
func StatusOf(o *Object, now time.Time, allowedDelay time.Duration) ObjectStatus {
	out := ObjectStatus{
		Name:     o.Name,
		Paused:   o.Paused,
		Children: make([]SubObjectStatus, 0, len(o.Children)),
	}
	for _, sub := range o.Children {
		out.Children = append(out.Children, SubObjectStatus{
			Name:       sub.Name,
			LastUpdate: sub.LastUpdate,
			Status:     sub.StatusAt(now, allowedDelay),
			Paused:     sub.Paused,
		})
	}
	return out
}
