package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shashinkan/internal/camera"
	"shashinkan/internal/config"
	"shashinkan/internal/printer"

	"github.com/gin-gonic/gin"
)

// CameraController はカメラ制御コマンドの抽象
type CameraController interface {
	ListDevices(ctx context.Context) ([]camera.DeviceInfo, error)
	Start(deviceID string) (camera.Status, error)
	Stop() error
	Status() (camera.Status, error)
	Capture(quality *int) (string, error)
	Preview() (string, error)
}

// PrinterService は印刷パススルーの抽象
type PrinterService interface {
	List(ctx context.Context) ([]printer.Info, error)
	Default(ctx context.Context) (*printer.Info, error)
	PrintTestPage(ctx context.Context, printerName string) (string, error)
	PrintPhoto(ctx context.Context, imageData, printerName string) (string, error)
}

// StorageService はファイル保存パススルーの抽象
type StorageService interface {
	SaveFile(dirPath, fileName, dataBase64 string) (string, error)
	CheckDirWritable(dirPath string) (bool, error)
}

// Handler は各エンドポイントの実装を束ねる
type Handler struct {
	config  *config.Config
	camera  CameraController
	printer PrinterService
	storage StorageService
}

// NewHandler は新しいHandlerを作成する
func NewHandler(cfg *config.Config, cam CameraController, prt PrinterService, st StorageService) *Handler {
	return &Handler{
		config:  cfg,
		camera:  cam,
		printer: prt,
		storage: st,
	}
}

// errorResponse はエラー応答の共通形式
type errorResponse struct {
	Error     string    `json:"error"`     // エラー種別コード
	Message   string    `json:"message"`   // 人間向けの説明
	Timestamp time.Time `json:"timestamp"` // 発生時刻
}

// abortWithError はカメラエラーを種別に応じたHTTP応答へ変換する
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, camera.ErrNotStarted):
		status = http.StatusConflict
		code = "camera_not_started"
	case errors.Is(err, camera.ErrDeviceNotFound):
		status = http.StatusNotFound
		code = "device_not_found"
	case errors.Is(err, camera.ErrFormatNegotiation):
		status = http.StatusUnprocessableEntity
		code = "format_negotiation_failed"
	case errors.Is(err, camera.ErrTimeout):
		status = http.StatusGatewayTimeout
		code = "command_timeout"
	case errors.Is(err, camera.ErrChannelClosed):
		status = http.StatusServiceUnavailable
		code = "camera_worker_unreachable"
	case errors.Is(err, camera.ErrFrameAcquisition),
		errors.Is(err, camera.ErrDecode),
		errors.Is(err, camera.ErrEncode):
		status = http.StatusInternalServerError
		code = "capture_failed"
	}

	c.JSON(status, errorResponse{
		Error:     code,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	cameraStatus, err := h.camera.Status()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"server": gin.H{
			"host": h.config.Server.Host,
			"port": h.config.Server.Port,
		},
		"camera":    cameraStatus,
		"timestamp": time.Now(),
	})
}

// ListCameras はキャプチャデバイス一覧取得エンドポイントの実装
func (h *Handler) ListCameras(c *gin.Context) {
	devices, err := h.camera.ListDevices(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cameras": devices})
}

// startCameraRequest はカメラ開始のリクエストボディ
type startCameraRequest struct {
	DeviceID *string `json:"device_id"` // 省略時は最初のデバイス
}

// StartCamera はカメラ開始エンドポイントの実装
func (h *Handler) StartCamera(c *gin.Context) {
	var req startCameraRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{
				Error:     "invalid_request",
				Message:   "リクエストボディの解析に失敗しました",
				Timestamp: time.Now(),
			})
			return
		}
	}

	deviceID := ""
	if req.DeviceID != nil {
		deviceID = *req.DeviceID
	}

	status, err := h.camera.Start(deviceID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// StopCamera はカメラ停止エンドポイントの実装
func (h *Handler) StopCamera(c *gin.Context) {
	if err := h.camera.Stop(); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

// GetCameraStatus はカメラ状態取得エンドポイントの実装
func (h *Handler) GetCameraStatus(c *gin.Context) {
	status, err := h.camera.Status()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// captureRequest はキャプチャのリクエストボディ
type captureRequest struct {
	Quality *int `json:"quality"` // JPEG品質 0-100。省略時はデフォルト品質
}

// CaptureFrame はキャプチャエンドポイントの実装
func (h *Handler) CaptureFrame(c *gin.Context) {
	var req captureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{
				Error:     "invalid_request",
				Message:   "リクエストボディの解析に失敗しました",
				Timestamp: time.Now(),
			})
			return
		}
	}

	image, err := h.camera.Capture(req.Quality)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": image})
}

// GetPreviewFrame はプレビュー取得エンドポイントの実装
// 品質固定の低品質キャプチャで、それ以外の動作はキャプチャと同じ
func (h *Handler) GetPreviewFrame(c *gin.Context) {
	image, err := h.camera.Preview()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": image})
}

// ListPrinters はプリンター一覧取得エンドポイントの実装
func (h *Handler) ListPrinters(c *gin.Context) {
	printers, err := h.printer.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"printers": printers})
}

// GetDefaultPrinter はデフォルトプリンター取得エンドポイントの実装
// デフォルトが未設定の場合はnullを返す
func (h *Handler) GetDefaultPrinter(c *gin.Context) {
	info, err := h.printer.Default(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"printer": info})
}

// printTestPageRequest はテストページ印刷のリクエストボディ
type printTestPageRequest struct {
	PrinterName string `json:"printer_name" binding:"required"`
}

// PrintTestPage はテストページ印刷エンドポイントの実装
func (h *Handler) PrintTestPage(c *gin.Context) {
	var req printTestPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:     "invalid_request",
			Message:   "printer_nameは必須です",
			Timestamp: time.Now(),
		})
		return
	}

	message, err := h.printer.PrintTestPage(c.Request.Context(), req.PrinterName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:     "print_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// printPhotoRequest は写真印刷のリクエストボディ
type printPhotoRequest struct {
	ImageData   string `json:"image_data" binding:"required"` // base64またはdata URI
	PrinterName string `json:"printer_name"`                  // 省略時はデフォルトプリンター
}

// PrintPhoto は写真印刷エンドポイントの実装
func (h *Handler) PrintPhoto(c *gin.Context) {
	var req printPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:     "invalid_request",
			Message:   "image_dataは必須です",
			Timestamp: time.Now(),
		})
		return
	}

	message, err := h.printer.PrintPhoto(c.Request.Context(), req.ImageData, req.PrinterName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:     "print_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// saveFileRequest はファイル保存のリクエストボディ
type saveFileRequest struct {
	DirPath    string `json:"dir_path"` // 省略時は設定の保存先
	FileName   string `json:"file_name" binding:"required"`
	DataBase64 string `json:"data_base64" binding:"required"` // base64またはdata URI
}

// SaveFile はファイル保存エンドポイントの実装
func (h *Handler) SaveFile(c *gin.Context) {
	var req saveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:     "invalid_request",
			Message:   "file_nameとdata_base64は必須です",
			Timestamp: time.Now(),
		})
		return
	}

	path, err := h.storage.SaveFile(req.DirPath, req.FileName, req.DataBase64)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:     "save_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}

// CheckDirWritable は保存先の書き込み可否確認エンドポイントの実装
func (h *Handler) CheckDirWritable(c *gin.Context) {
	dirPath := c.Query("dir")

	writable, err := h.storage.CheckDirWritable(dirPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:     "check_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"writable": writable})
}
