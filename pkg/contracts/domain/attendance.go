package domain

// SessionDetail is one matched session inside a day
type SessionDetail struct {
	Column   string      `json:"column"`
	TimeSlot string      `json:"time_slot"`
	Text     string      `json:"text"`
	Kind     SessionKind `json:"kind"`
}

// DayDetail groups the matched sessions of a single schedule row
type DayDetail struct {
	Date     string          `json:"date"`
	Sessions []SessionDetail `json:"sessions"`
}

// StatusTier is the coarse attendance standing shown to the student
type StatusTier string

const (
	StatusGood     StatusTier = "GOOD"
	StatusWarning  StatusTier = "WARNING"
	StatusCritical StatusTier = "CRITICAL"
)

// Description returns the headline used for the tier in reports.
func (s StatusTier) Description() string {
	switch s {
	case StatusGood:
		return "Meeting attendance requirements"
	case StatusWarning:
		return "Close to minimum requirement"
	default:
		return "Below minimum attendance requirement"
	}
}

// AttendanceResult is derived from session totals and the missed count.
type AttendanceResult struct {
	Module           string     `json:"module"`
	TotalSessions    int        `json:"total_sessions"`
	Attended         int        `json:"attended"`
	Missed           int        `json:"missed"`
	Percentage       float64    `json:"percentage"`
	MinPercent       int        `json:"min_percent"`
	MinSessions      int        `json:"min_sessions_needed"`
	MaxTotalMissed   int        `json:"max_total_missed"`
	HolidayAllowance int        `json:"holiday_allowance"`
	SessionsOver     int        `json:"sessions_over_limit"`
	SessionsNeeded   int        `json:"sessions_needed"`
	Status           StatusTier `json:"status"`
}

// MappingEntry is one learned label to module code pair.
type MappingEntry struct {
	Key  string `json:"key"`
	Code string `json:"code"`
}

// AttendancePolicy holds the attendance thresholds, in percent.
type AttendancePolicy struct {
	MinPercent  int `yaml:"min_percent" json:"min_percent" envconfig:"MIN_PERCENT" validate:"min=1,max=100"`
	WarnPercent int `yaml:"warn_percent" json:"warn_percent" envconfig:"WARN_PERCENT" validate:"min=0,max=100,ltefield=MinPercent"`
}

// DefaultAttendancePolicy is the 80% requirement with a warning band from 75%.
func DefaultAttendancePolicy() AttendancePolicy {
	return AttendancePolicy{MinPercent: 80, WarnPercent: 75}
}
