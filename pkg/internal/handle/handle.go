// Package handle 提供协调器 HTTP 处理器.
//
// 所有响应都带 success 字段.业务错误按 errors.Is 映射状态码：
// 校验失败 400，不存在或会话过期 404，其余 500 且只返回通用信息，细节写日志.
package handle

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/chunkvault/pkg/context"
	"github.com/yeisme/chunkvault/pkg/internal/service"
	"github.com/yeisme/chunkvault/pkg/internal/types"
	"github.com/yeisme/chunkvault/pkg/log"
	"github.com/yeisme/chunkvault/pkg/rule"
)

// UploadService 处理器依赖的协调器操作，service.UploadService 满足该接口.
type UploadService interface {
	Initiate(ctx context.Context, in service.InitiateInput) (*service.InitiateResult, error)
	RecordChunk(ctx context.Context, in service.RecordChunkInput) error
	Complete(ctx context.Context, in service.CompleteInput) error
	Abort(ctx context.Context, in service.AbortInput) error
	Status(ctx context.Context, fileID string) (*service.UploadStatus, error)
	DownloadURL(ctx context.Context, objectKey string) (string, error)
}

// UploadHandlers 上传协议处理器.
type UploadHandlers struct {
	svc UploadService
}

// NewUploadHandlers 创建处理器.
func NewUploadHandlers(svc UploadService) *UploadHandlers {
	return &UploadHandlers{svc: svc}
}

// bindJSON 解码请求体并按 rule 标签校验.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return err
	}

	return rule.ValidateStruct(req)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, types.Response{Success: false, Error: msg})
}

// badRequest 请求体无法解码或校验失败.
func badRequest(c *gin.Context, op string, err error) {
	l := ctxPkg.Logger(c.Request.Context(), log.Component("http"))
	l.Warn().Err(err).Str("op", op).Msg("invalid request")
	fail(c, http.StatusBadRequest, err.Error())
}

// writeError 按错误分类写响应.
func writeError(c *gin.Context, op string, err error) {
	l := ctxPkg.Logger(c.Request.Context(), log.Component("http"))

	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn().Err(err).Str("op", op).Msg("validation failed")
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrSessionExpired):
		l.Info().Err(err).Str("op", op).Msg("not found")
		fail(c, http.StatusNotFound, err.Error())
	default:
		l.Error().Err(err).Str("op", op).Msg("request failed")
		fail(c, http.StatusInternalServerError, genericMessage(err))
	}

	_ = c.Error(err)
}

func genericMessage(err error) string {
	if errors.Is(err, service.ErrInitFailed) {
		return "failed to initiate upload"
	}

	return "internal server error"
}
