package application

// Role of an authenticated caller
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller.
type Principal struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// CanAccessPatient: pasien hanya boleh akses datanya sendiri, dokter/admin boleh semua
func (p Principal) CanAccessPatient(patientID string) bool {
	switch p.Role {
	case RoleDoctor, RoleAdmin:
		return true
	case RolePatient:
		return p.Subject != "" && p.Subject == patientID
	}
	return false
}
