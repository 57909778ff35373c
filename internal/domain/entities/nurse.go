package entities

// Nurse is an entry from the hospital's nurse directory
type Nurse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"department_id,omitempty"`
}
