package punch

// Punch codes as reported by the terminal firmware.
const (
	CodeCheckIn     = 0
	CodeCheckOut    = 1
	CodeBreakOut    = 2
	CodeBreakIn     = 3
	CodeOvertimeIn  = 4
	CodeOvertimeOut = 5
	CodeDuplicate   = 255
)

// Verification methods as reported by the terminal firmware.
const (
	MethodFinger    = 1
	MethodType2     = 2
	MethodPassword  = 3
	MethodCard      = 4
	MethodFace      = 15
	MethodDuplicate = 255
)

// Side is the IN/OUT partition a punch code resolves to under a vendor
// profile. SideNone means the profile does not map the code at all.
type Side int

const (
	SideNone Side = iota
	SideIn
	SideOut
)

func (s Side) String() string {
	switch s {
	case SideIn:
		return "in"
	case SideOut:
		return "out"
	default:
		return "none"
	}
}

// Privilege levels after mapping raw device values.
const (
	PrivilegeUser       = "user"
	PrivilegeSupervisor = "supervisor"
	PrivilegeAdmin      = "admin"
)

// MapPrivilege collapses raw firmware privilege values into the three
// levels the HR side distinguishes. Vendors use 1, 14 and 15 for variants
// of full administration; 2 is enrollment-only supervision.
func MapPrivilege(raw int) string {
	switch raw {
	case 1, 14, 15:
		return PrivilegeAdmin
	case 2:
		return PrivilegeSupervisor
	default:
		return PrivilegeUser
	}
}

var codeLabels = map[int]string{
	CodeCheckIn:     "Check In",
	CodeCheckOut:    "Check Out",
	CodeBreakOut:    "Break Out",
	CodeBreakIn:     "Break In",
	CodeOvertimeIn:  "Overtime In",
	CodeOvertimeOut: "Overtime Out",
	CodeDuplicate:   "Duplicate",
}

var methodLabels = map[int]string{
	MethodFinger:    "Finger",
	MethodType2:     "Type_2",
	MethodPassword:  "Password",
	MethodCard:      "Card",
	MethodFace:      "Face",
	MethodDuplicate: "Duplicate",
}

// CodeLabel returns the human-readable name for a punch code, or "Unknown"
// for values no profile maps.
func CodeLabel(code int) string {
	if l, ok := codeLabels[code]; ok {
		return l
	}
	return "Unknown"
}

// MethodLabel returns the human-readable name for a verification method,
// or "Unknown" for unrecognized values.
func MethodLabel(method int) string {
	if l, ok := methodLabels[method]; ok {
		return l
	}
	return "Unknown"
}
