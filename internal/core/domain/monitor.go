package domain

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Object is a monitored system. Its sub-objects report heartbeats
// independently of each other.
type Object struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Paused   bool         `json:"paused"`
	Children []*SubObject `json:"children"`
}

type SubObject struct {
	ID         int64      `json:"id"`
	ObjectID   int64      `json:"object_id"`
	Name       string     `json:"name"`
	LastUpdate *time.Time `json:"last_update"`
	Notified   bool       `json:"notified"`
	Paused     bool       `json:"paused"`
}

// StatusAt reports whether the sub-object has been heard from within
// allowedDelay of now. A sub-object that never reported is inactive.
func (s *SubObject) StatusAt(now time.Time, allowedDelay time.Duration) Status {
	if s.LastUpdate == nil {
		return StatusInactive
	}
	if now.Sub(*s.LastUpdate) <= allowedDelay {
		return StatusActive
	}
	return StatusInactive
}

// Silent is true once a sub-object that has reported at least once has been
// quiet for longer than allowedDelay.
func (s *SubObject) Silent(now time.Time, allowedDelay time.Duration) bool {
	return s.LastUpdate != nil && now.Sub(*s.LastUpdate) > allowedDelay
}

// Monitored is false when either the sub-object or its parent is paused.
func (s *SubObject) Monitored(parent *Object) bool {
	return !parent.Paused && !s.Paused
}

// Heartbeat is a single status report. Older clients send program_name and
// api_key instead of object_name and sub_object_name.
type Heartbeat struct {
	ObjectName    string
	SubObjectName string
	ProgramName   string
	APIKey        string
}

// Target resolves the object and sub-object a heartbeat refers to.
// legacy is true when the program_name/api_key form was used.
func (h Heartbeat) Target() (object, sub string, legacy bool, err error) {
	if h.ObjectName == "" && h.ProgramName != "" && h.APIKey != "" {
		return h.ProgramName, h.APIKey, true, nil
	}
	if h.ObjectName == "" || h.SubObjectName == "" {
		return "", "", false, ErrMissingTarget
	}
	return h.ObjectName, h.SubObjectName, false, nil
}

// CycleStats summarises one watchdog pass.
type CycleStats struct {
	Active     int
	Inactive   int
	Paused     int
	Alerts     int
	Recoveries int
}
