package main

import (
	"fmt"
	"html/template"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"zhutan/internal/db"
	"zhutan/internal/discussion"
	"zhutan/internal/middleware"
	"zhutan/internal/router"
	"zhutan/internal/services"
	"zhutan/internal/utils"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	// 组装讨论区执行器
	topicsPerPage := utils.StringToInt(os.Getenv("TOPICS_PER_PAGE"))
	if topicsPerPage <= 0 {
		topicsPerPage = discussion.DefaultTopicsPerPage
	}
	perm := services.NewPermService(db.DB)
	dispatcher := discussion.NewDispatcher(
		db.DB,
		perm,
		utils.NewBoardRenderer(),
		services.NewMailService(db.DB),
		topicsPerPage,
	)

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("zhutan_session", store))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = loadTemplates("./web/templates")

	// Static Assets
	r.Static("/static", "./web/static")

	// Middleware
	if raw := os.Getenv("HTTPAUTH_PATHS"); raw != "" {
		var paths []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		r.Use(middleware.BasicAuth("zhutan", paths))
	}
	r.Use(middleware.LoadUser())

	// Routes
	router.RegisterRoutes(r, dispatcher, perm)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Zhutan server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		panic(err)
	}

	// Helper to assemble files
	assemble := func(view string) []string {
		files := make([]string, 0)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, view)
		return files
	}

	// FuncMap
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo": func(t interface{}) string {
			var timeVal time.Time
			switch v := t.(type) {
			case time.Time:
				timeVal = v
			case *time.Time:
				if v == nil {
					return ""
				}
				timeVal = *v
			default:
				return ""
			}

			duration := time.Since(timeVal)
			seconds := int(duration.Seconds())

			if seconds < 60 {
				return fmt.Sprintf("%d秒前", seconds)
			} else if seconds < 3600 {
				return fmt.Sprintf("%d分钟前", seconds/60)
			} else if seconds < 86400 {
				return fmt.Sprintf("%d小时前", seconds/3600)
			} else if seconds < 2592000 {
				return fmt.Sprintf("%d天前", seconds/86400)
			} else if seconds < 31536000 {
				return fmt.Sprintf("%d个月前", seconds/2592000)
			}
			return fmt.Sprintf("%d年前", seconds/31536000)
		},
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
	}

	// Manual registration to ensure keys match handler expectation
	// Auth
	r.AddFromFilesFuncs("auth/login.html", funcMap, assemble(templatesDir+"/views/auth/login.html")...)
	r.AddFromFilesFuncs("auth/register.html", funcMap, assemble(templatesDir+"/views/auth/register.html")...)

	// Discussion
	r.AddFromFilesFuncs("discussion/forum-list.html", funcMap, assemble(templatesDir+"/views/discussion/forum-list.html")...)
	r.AddFromFilesFuncs("discussion/forum-add.html", funcMap, assemble(templatesDir+"/views/discussion/forum-add.html")...)
	r.AddFromFilesFuncs("discussion/topic-list.html", funcMap, assemble(templatesDir+"/views/discussion/topic-list.html")...)
	r.AddFromFilesFuncs("discussion/topic-add.html", funcMap, assemble(templatesDir+"/views/discussion/topic-add.html")...)
	r.AddFromFilesFuncs("discussion/topic-move.html", funcMap, assemble(templatesDir+"/views/discussion/topic-move.html")...)
	r.AddFromFilesFuncs("discussion/message-list.html", funcMap, assemble(templatesDir+"/views/discussion/message-list.html")...)

	// Admin
	r.AddFromFilesFuncs("admin/group-list.html", funcMap, assemble(templatesDir+"/views/admin/group-list.html")...)
	r.AddFromFilesFuncs("admin/forum-list.html", funcMap, assemble(templatesDir+"/views/admin/forum-list.html")...)

	// Wiki
	r.AddFromFilesFuncs("wiki/page.html", funcMap, assemble(templatesDir+"/views/wiki/page.html")...)

	// Timeline / Search
	r.AddFromFilesFuncs("timeline.html", funcMap, assemble(templatesDir+"/views/timeline.html")...)
	r.AddFromFilesFuncs("search.html", funcMap, assemble(templatesDir+"/views/search.html")...)

	// Error
	r.AddFromFilesFuncs("error.html", funcMap, assemble(templatesDir+"/views/error.html")...)

	return r
}
