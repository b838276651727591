package model

import (
	"time"

	"github.com/google/uuid"
)

const StudentStatusActive = "active"

type SchoolClass struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Grade     string    `gorm:"type:varchar(20)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SchoolClass) TableName() string {
	return "classes"
}

// ClassTeacher assigns a staff member to a class. A class can have several
// assigned teachers and a teacher can cover several classes.
type ClassTeacher struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClassId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_teacher"`
	TeacherId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_class_teacher"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ClassTeacher) TableName() string {
	return "class_teachers"
}

// Student is an enrollment record. GuardianId links to the users table; two
// students may share the same guardian.
type Student struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName   string    `gorm:"type:varchar(255);not null"`
	ClassId    uuid.UUID `gorm:"type:uuid;not null;index"`
	GuardianId uuid.UUID `gorm:"type:uuid;not null;index"`
	Status     string    `gorm:"type:varchar(50);not null;default:'active'"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Student) TableName() string {
	return "students"
}
