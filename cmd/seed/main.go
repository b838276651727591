package main

import (
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"school-admin-be/internal/model"
	"school-admin-be/pkg/database"
)

// Dev seeder: one admin, one teacher with a class, and two guardians with
// enrolled students, so the notification flow can be exercised end to end
// against a fresh database.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	admin := seedUser(db, "admin@school.test", "Head Admin", model.RoleAdmin)
	teacher := seedUser(db, "teacher@school.test", "Grade 5 Teacher", model.RoleTeacher)
	guardianOne := seedUser(db, "guardian1@school.test", "Guardian One", model.RoleParent)
	guardianTwo := seedUser(db, "guardian2@school.test", "Guardian Two", model.RoleParent)

	class := model.SchoolClass{Name: "5-A", Grade: "5"}
	if err := db.Where(model.SchoolClass{Name: "5-A"}).FirstOrCreate(&class).Error; err != nil {
		log.Fatalf("Error: Failed to seed class: %v", err)
	}

	assignment := model.ClassTeacher{ClassId: class.Id, TeacherId: teacher.Id}
	if err := db.Where(model.ClassTeacher{ClassId: class.Id, TeacherId: teacher.Id}).FirstOrCreate(&assignment).Error; err != nil {
		log.Fatalf("Error: Failed to seed class teacher: %v", err)
	}

	seedStudent(db, "Student One", class.Id, guardianOne.Id)
	seedStudent(db, "Student Two", class.Id, guardianTwo.Id)

	log.Printf("✅ Success: Seeded class %s (admin %s)", class.Id, admin.Id)
}

func seedUser(db *gorm.DB, email, fullName, role string) model.User {
	user := model.User{
		Email:    email,
		FullName: fullName,
		Role:     role,
		Status:   model.UserStatusActive,
	}
	if err := db.Where(model.User{Email: email}).FirstOrCreate(&user).Error; err != nil {
		log.Fatalf("Error: Failed to seed user %s: %v", email, err)
	}
	return user
}

func seedStudent(db *gorm.DB, fullName string, classId, guardianId uuid.UUID) {
	student := model.Student{
		FullName:   fullName,
		ClassId:    classId,
		GuardianId: guardianId,
		Status:     model.StudentStatusActive,
	}
	if err := db.Where(model.Student{FullName: fullName, ClassId: classId}).FirstOrCreate(&student).Error; err != nil {
		log.Fatalf("Error: Failed to seed student %s: %v", fullName, err)
	}
}
