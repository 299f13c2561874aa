package model

// Account is a login credential record. Patients self-register through
// signup; psychiatrist accounts are provisioned by the operator alongside
// their directory entry. The account's email is the join key to both the
// psychiatrists directory and a patient's appointment requests.
type Account struct {
	Base
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Password     string `json:"password,omitempty" db:"-"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
}

type PatientSignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}
