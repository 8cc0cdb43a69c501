// Package router 管理路由配置，将处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/chunkvault/pkg/internal/handle"
	"github.com/yeisme/chunkvault/pkg/middleware"
)

// RegisterUploadRoutes 注册上传协议路由：
//
//	POST /uploads/initiate        -> Initiate
//	POST /uploads/chunk           -> RecordChunk
//	POST /uploads/complete        -> Complete
//	POST /uploads/abort           -> Abort
//	GET  /uploads/:file_id        -> Status（弱 ETag）
//	POST /files/download-url      -> DownloadURL
func RegisterUploadRoutes(g *gin.RouterGroup, h *handle.UploadHandlers) {
	uploads := g.Group("/uploads")
	{
		uploads.POST("/initiate", h.Initiate)
		uploads.POST("/chunk", h.RecordChunk)
		uploads.POST("/complete", h.Complete)
		uploads.POST("/abort", h.Abort)
		uploads.GET("/:file_id", middleware.ETagMiddleware(), h.Status)
	}

	g.POST("/files/download-url", h.DownloadURL)
}
