package router

import (
	"net/http"

	"zhutan/internal/discussion"
	"zhutan/internal/handlers"
	"zhutan/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, dispatcher *discussion.Dispatcher, perm discussion.PermissionChecker) {
	// Handlers
	authHandler := handlers.NewAuthHandler()
	discussionHandler := handlers.NewDiscussionHandler(dispatcher)
	adminHandler := handlers.NewAdminHandler(dispatcher)
	wikiHandler := handlers.NewWikiHandler(dispatcher)
	timelineHandler := handlers.NewTimelineHandler(dispatcher, perm)
	searchHandler := handlers.NewSearchHandler(dispatcher, perm)

	// 公共路由 (Public Routes)
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/discussion")
	})

	// 讨论区：/discussion/<版块>[/<主题>[/<消息>]]，尾部斜杠由
	// gin 的 RedirectTrailingSlash 归一到 catch-all
	r.GET("/discussion/*path", discussionHandler.Board)
	r.POST("/discussion/*path", discussionHandler.Board)

	// 页面内嵌讨论
	r.GET("/pages/*name", wikiHandler.Page)
	r.POST("/pages/*name", wikiHandler.Page)

	r.GET("/timeline", timelineHandler.Timeline) // 最近动态，?format=rss 输出订阅源
	r.GET("/search", searchHandler.Search)       // 全文搜索

	r.GET("/signup", authHandler.ShowRegister) // 注册页面
	r.POST("/signup", authHandler.Register)    // 提交注册
	r.GET("/login", authHandler.ShowLogin)     // 登录页面
	r.POST("/login", authHandler.Login)        // 提交登录
	r.GET("/logout", authHandler.Logout)       // 退出登录

	// 管理面板 (Admin Panels)：能力校验在执行器里做，这里只要求登录
	admin := r.Group("/admin/discussion")
	admin.Use(middleware.AuthRequired())
	{
		admin.GET("/group", adminHandler.GroupPanel)
		admin.POST("/group", adminHandler.GroupPanel)
		admin.GET("/group/:id", adminHandler.GroupPanel)
		admin.POST("/group/:id", adminHandler.GroupPanel)

		admin.GET("/forum", adminHandler.ForumPanel)
		admin.POST("/forum", adminHandler.ForumPanel)
		admin.GET("/forum/:id", adminHandler.ForumPanel)
		admin.POST("/forum/:id", adminHandler.ForumPanel)
	}
}
