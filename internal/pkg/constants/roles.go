package constants

const (
	SuperAdmin = "SUPER_ADMIN"
	Admin      = "ADMIN"
	Profesor   = "PROFESOR"
	Acudiente  = "ACUDIENTE"
	Estudiante = "ESTUDIANTE"
)

// ValidRoles is the set of allowed values for usuarios.tipo.
var ValidRoles = []string{SuperAdmin, Admin, Profesor, Acudiente, Estudiante}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
