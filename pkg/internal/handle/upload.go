package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/chunkvault/pkg/context"
	"github.com/yeisme/chunkvault/pkg/internal/service"
	"github.com/yeisme/chunkvault/pkg/internal/storage/s3"
	"github.com/yeisme/chunkvault/pkg/internal/types"
)

// Initiate 打开分片上传.
//
//	@Summary		打开分片上传
//	@Description	为每个分片签发 PUT URL，presignedUrls[i] 对应分片下标 i
//	@Tags			上传
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.InitiateUploadRequest	true	"文件信息"
//	@Success		200		{object}	types.InitiateUploadResponse
//	@Failure		400		{object}	types.Response
//	@Failure		500		{object}	types.Response
//	@Router			/api/v1/uploads/initiate [post]
func (h *UploadHandlers) Initiate(c *gin.Context) {
	var req types.InitiateUploadRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "initiate", err)
		return
	}

	res, err := h.svc.Initiate(c.Request.Context(), service.InitiateInput{
		FileID:   req.FileID,
		FileName: req.FileName,
		MimeType: req.FileType,
		Size:     req.FileSize,
		OwnerID:  ctxPkg.GetOwner(c.Request.Context()),
	})
	if err != nil {
		writeError(c, "initiate", err)
		return
	}

	c.JSON(http.StatusOK, types.InitiateUploadResponse{
		Success:       true,
		UploadID:      res.UploadID,
		PresignedURLs: res.PresignedURLs,
		PartSize:      res.PartSize,
		ObjectKey:     res.ObjectKey,
	})
}

// RecordChunk 记录已上传的分片.
//
//	@Summary	记录分片
//	@Tags		上传
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.RecordChunkRequest	true	"分片信息"
//	@Success	200		{object}	types.Response
//	@Failure	400		{object}	types.Response
//	@Failure	404		{object}	types.Response
//	@Router		/api/v1/uploads/chunk [post]
func (h *UploadHandlers) RecordChunk(c *gin.Context) {
	var req types.RecordChunkRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "record_chunk", err)
		return
	}

	err := h.svc.RecordChunk(c.Request.Context(), service.RecordChunkInput{
		FileID:     req.FileID,
		ChunkIndex: *req.ChunkIndex,
		Size:       req.Size,
		ETag:       req.ETag,
	})
	if err != nil {
		writeError(c, "record_chunk", err)
		return
	}

	c.JSON(http.StatusOK, types.Response{Success: true})
}

// Complete 合并分片.
//
//	@Summary		完成分片上传
//	@Description	按客户端提交的分片列表合并，对象确认由事件对账器异步完成
//	@Tags			上传
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.CompleteUploadRequest	true	"分片列表"
//	@Success		200		{object}	types.Response
//	@Failure		400		{object}	types.Response
//	@Failure		404		{object}	types.Response
//	@Failure		500		{object}	types.Response
//	@Router			/api/v1/uploads/complete [post]
func (h *UploadHandlers) Complete(c *gin.Context) {
	var req types.CompleteUploadRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "complete", err)
		return
	}

	parts := make([]s3.CompletedPart, len(req.Parts))
	for i, p := range req.Parts {
		parts[i] = s3.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	err := h.svc.Complete(c.Request.Context(), service.CompleteInput{
		UploadID: req.UploadID,
		FileID:   req.FileID,
		Parts:    parts,
	})
	if err != nil {
		writeError(c, "complete", err)
		return
	}

	c.JSON(http.StatusOK, types.Response{Success: true})
}

// Abort 放弃上传并清理会话与元数据，重复调用是安全的.
//
//	@Summary	放弃上传
//	@Tags		上传
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.AbortUploadRequest	true	"上传标识"
//	@Success	200		{object}	types.Response
//	@Failure	400		{object}	types.Response
//	@Failure	500		{object}	types.Response
//	@Router		/api/v1/uploads/abort [post]
func (h *UploadHandlers) Abort(c *gin.Context) {
	var req types.AbortUploadRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "abort", err)
		return
	}

	err := h.svc.Abort(c.Request.Context(), service.AbortInput{UploadID: req.UploadID, FileID: req.FileID})
	if err != nil {
		writeError(c, "abort", err)
		return
	}

	c.JSON(http.StatusOK, types.Response{Success: true})
}

// Status 查询上传状态，响应带弱 ETag.
//
//	@Summary	上传状态
//	@Tags		上传
//	@Produce	json
//	@Param		file_id	path		string	true	"文件 id"
//	@Success	200		{object}	types.UploadStatusResponse
//	@Success	304
//	@Failure	404		{object}	types.Response
//	@Router		/api/v1/uploads/{file_id} [get]
func (h *UploadHandlers) Status(c *gin.Context) {
	st, err := h.svc.Status(c.Request.Context(), c.Param("file_id"))
	if err != nil {
		writeError(c, "status", err)
		return
	}

	f := st.File

	c.JSON(http.StatusOK, types.UploadStatusResponse{
		Success: true,
		File: types.UploadFileInfo{
			FileID:    f.FileID,
			FileName:  f.FileName,
			MimeType:  f.MimeType,
			Size:      f.Size,
			ObjectKey: f.ObjectKey,
			Status:    string(f.Status),
			CreatedAt: f.CreatedAt,
		},
		Chunks: types.ChunkProgress{
			Total:     st.Chunks.Total,
			Completed: st.Chunks.Completed,
			Pending:   st.Chunks.Pending,
			Failed:    st.Chunks.Failed,
		},
	})
}

// DownloadURL 为对象键签发限时下载地址.
//
//	@Summary	下载地址
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.DownloadURLRequest	true	"对象键"
//	@Success	200		{object}	types.DownloadURLResponse
//	@Failure	400		{object}	types.Response
//	@Failure	500		{object}	types.Response
//	@Router		/api/v1/files/download-url [post]
func (h *UploadHandlers) DownloadURL(c *gin.Context) {
	var req types.DownloadURLRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, "download_url", err)
		return
	}

	url, err := h.svc.DownloadURL(c.Request.Context(), req.S3Key)
	if err != nil {
		writeError(c, "download_url", err)
		return
	}

	c.JSON(http.StatusOK, types.DownloadURLResponse{Success: true, URL: url})
}
