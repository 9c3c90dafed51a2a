package db

import (
	"encoding/json"
	"time"
)

// CanonicalProgram maps campus.canonical_programs, the catalog every source
// record resolves against. Keywords is a JSON array of lowercase terms.
type CanonicalProgram struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	CanonicalNameEN string          `gorm:"column:canonical_name_en;type:text;not null;unique"`
	Keywords        json.RawMessage `gorm:"column:keywords;type:jsonb"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (CanonicalProgram) TableName() string { return "campus.canonical_programs" }

// Program maps campus.programs, the primary source kind. Requirements feeds
// the category classifier alongside the programme name.
type Program struct {
	ID                 int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ProgramENName      string     `gorm:"column:program_en_name;type:text;not null"`
	University         *string    `gorm:"column:university;type:text"`
	Requirements       *string    `gorm:"column:requirements;type:text"`
	Category           *string    `gorm:"column:category;type:text"`
	CanonicalProgramID *int64     `gorm:"column:canonical_program_id;type:bigint"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
	DeletedAt          *time.Time `gorm:"column:deleted_at;type:timestamptz"`
}

func (Program) TableName() string { return "campus.programs" }

// ProgramStat maps campus.program_stats, aggregate admission figures keyed by
// a free-form programme name.
type ProgramStat struct {
	ID                 int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProgramName        string    `gorm:"column:program_name;type:text;not null"`
	AdmissionYear      *int      `gorm:"column:admission_year;type:integer"`
	Applicants         *int      `gorm:"column:applicants;type:integer"`
	Offers             *int      `gorm:"column:offers;type:integer"`
	CanonicalProgramID *int64    `gorm:"column:canonical_program_id;type:bigint"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ProgramStat) TableName() string { return "campus.program_stats" }

// AdmissionCase maps campus.admission_cases, individual applicant outcomes
// carrying the programme name the applicant typed.
type AdmissionCase struct {
	ID                 int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AppliedProgram     string    `gorm:"column:applied_program;type:text;not null"`
	Outcome            *string   `gorm:"column:outcome;type:text"`
	CanonicalProgramID *int64    `gorm:"column:canonical_program_id;type:bigint"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (AdmissionCase) TableName() string { return "campus.admission_cases" }

func autoMigrateModels() []any {
	return []any{
		&CanonicalProgram{},
		&Program{},
		&ProgramStat{},
		&AdmissionCase{},
	}
}
