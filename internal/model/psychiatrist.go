package model

// Psychiatrist is a public directory entry. Records are created and
// mutated only by an admin; the directory and request-matching logic
// read them.
type Psychiatrist struct {
	Base
	Name      string `db:"name" json:"name"`
	Specialty string `db:"specialty" json:"specialty"`
	Location  string `db:"location" json:"location"`
	Bio       string `db:"bio" json:"bio,omitempty"`
	Email     string `db:"email" json:"email"`
}

type CreatePsychiatristRequest struct {
	Name      string `json:"name" binding:"required"`
	Specialty string `json:"specialty" binding:"required"`
	Location  string `json:"location" binding:"required"`
	Bio       string `json:"bio"`
	Email     string `json:"email" binding:"required,email"`
}

type UpdatePsychiatristRequest struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
	Location  *string `json:"location"`
	Bio       *string `json:"bio"`
	Email     *string `json:"email" binding:"omitempty,email"`
}

// PsychiatristFilters narrows the public directory listing. All matches
// are case-insensitive substring matches.
type PsychiatristFilters struct {
	Name      string `form:"name"`
	Location  string `form:"location"`
	Specialty string `form:"specialty"`
}
