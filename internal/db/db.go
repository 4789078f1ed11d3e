package db

import (
	"log"
	"os"

	"zhutan/internal/models"
	"zhutan/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=zhutan port=5432 sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	// Auto Migrate
	err = DB.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.Group{},
		&models.Forum{},
		&models.Topic{},
		&models.Message{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedPermissions()
	seedAdmin()
}

// seedPermissions 默认放开浏览和发帖，匿名访客也能用
func seedPermissions() {
	var count int64
	DB.Model(&models.Permission{}).Count(&count)
	if count > 0 {
		log.Println("Permissions already seeded, skipping")
		return
	}

	grants := []models.Permission{
		{Username: "*", Action: "DISCUSSION_VIEW"},
		{Username: "*", Action: "DISCUSSION_APPEND"},
	}
	for _, grant := range grants {
		if err := DB.Create(&grant).Error; err != nil {
			log.Printf("Failed to create grant %s/%s: %v", grant.Username, grant.Action, err)
		}
	}
	log.Println("Initial permission grants created successfully")
}

// seedAdmin 按环境变量创建管理员账号，已存在则跳过
func seedAdmin() {
	username := os.Getenv("ADMIN_USER")
	password := os.Getenv("ADMIN_PASS")
	if username == "" || password == "" {
		return
	}

	var count int64
	DB.Model(&models.User{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Failed to hash admin password: %v", err)
		return
	}
	admin := models.User{
		Username: username,
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to create admin user %s: %v", username, err)
		return
	}
	log.Printf("Admin user %s created", username)
}
