package handler

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// 习惯图标统一缩放到的边长
const iconSize = 128

// UploadHabitIcon 处理习惯图标上传：保存原图并生成 128px 的 PNG 缩略图
func (a *API) UploadHabitIcon(c *gin.Context) {
	file, err := c.FormFile("icon")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, "创建上传目录失败")
		return
	}

	// 生成唯一文件名
	ext := filepath.Ext(file.Filename)
	baseName := fmt.Sprintf("%s-%s", time.Now().Format("20060102"), uuid.New().String())
	originalPath := filepath.Join(a.uploadDir, baseName+ext)

	if err := c.SaveUploadedFile(file, originalPath); err != nil {
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	thumbName := baseName + "_icon.png"
	if err := writeIconThumbnail(originalPath, filepath.Join(a.uploadDir, thumbName)); err != nil {
		respondError(c, http.StatusBadRequest, "无法解析图片内容")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":      fmt.Sprintf("%s/%s", a.uploadURL, baseName+ext),
		"icon_url": fmt.Sprintf("%s/%s", a.uploadURL, thumbName),
	})
}

// writeIconThumbnail 解码原图并等比缩放到 iconSize 边长内，输出 PNG
func writeIconThumbnail(sourcePath, targetPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source image: %w", err)
	}
	defer source.Close()

	decoded, _, err := image.Decode(source)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("empty image")
	}

	targetWidth, targetHeight := iconSize, iconSize
	if width > height {
		targetHeight = height * iconSize / width
	} else {
		targetWidth = width * iconSize / height
	}
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}

	thumb := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), decoded, bounds, draw.Over, nil)

	target, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	defer target.Close()

	if err := png.Encode(target, thumb); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return nil
}
