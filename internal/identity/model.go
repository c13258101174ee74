package identity

import (
	"time"
)

type Role string

const (
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// Identity is either a *Doctor or a *Patient. The scheduling core only needs
// the role and a name to show.
type Identity interface {
	Role() Role
	DisplayName() string
	isIdentity()
}

type Doctor struct {
	ID             int64
	Name           string
	Specialization string
	Email          string
	Phone          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d *Doctor) Role() Role          { return RoleDoctor }
func (d *Doctor) DisplayName() string { return d.Name }
func (d *Doctor) isIdentity()         {}

type Patient struct {
	ID             int64
	Name           string
	Email          string
	Phone          string
	DOB            *time.Time
	MedicalHistory string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Patient) Role() Role          { return RolePatient }
func (p *Patient) DisplayName() string { return p.Name }
func (p *Patient) isIdentity()         {}

type DoctorPage struct {
	Doctors     []Doctor
	Page        int
	Size        int
	TotalItems  int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}
