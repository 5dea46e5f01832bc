package handler

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	// 注册常见图片解码器，含 webp
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maqsadm/internal/db"
	"golang.org/x/image/draw"
	"gorm.io/gorm"
)

// 头像统一缩放到的最大边长
const avatarMaxEdge = 256

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	userID := currentUserID(c)

	var user db.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "加载用户失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": serializeUser(user)})
}

// UpdateProfile 更新展示名
func (a *API) UpdateProfile(c *gin.Context) {
	userID := currentUserID(c)

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	displayName := strings.TrimSpace(payload.DisplayName)
	if displayName == "" {
		respondError(c, http.StatusBadRequest, "展示名不能为空")
		return
	}

	if err := a.db.Model(&db.User{}).Where("id = ?", userID).
		Update("display_name", displayName).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "更新资料失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"display_name": displayName})
}

// UploadAvatar 处理头像上传：解码、等比缩放到 256px 内并存为 PNG。
func (a *API) UploadAvatar(c *gin.Context) {
	userID := currentUserID(c)

	file, err := c.FormFile("avatar")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}
	defer src.Close()

	decoded, _, err := image.Decode(src)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无法解析图片内容")
		return
	}

	resized := scaleToFit(decoded, avatarMaxEdge)

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, "创建上传目录失败")
		return
	}

	filename := fmt.Sprintf("avatar-%s.png", uuid.New().String())
	path := filepath.Join(a.uploadDir, filename)

	out, err := os.Create(path)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}
	defer out.Close()

	if err := png.Encode(out, resized); err != nil {
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	avatarURL := strings.TrimRight(a.uploadURL, "/") + "/" + filename
	if err := a.db.Model(&db.User{}).Where("id = ?", userID).
		Update("avatar_url", avatarURL).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "更新头像失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar_url": avatarURL})
}

// scaleToFit 将图片等比缩小到 maxEdge 以内，已足够小时原样返回。
func scaleToFit(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxEdge && height <= maxEdge {
		return src
	}

	ratio := float64(maxEdge) / float64(width)
	if height > width {
		ratio = float64(maxEdge) / float64(height)
	}
	dstWidth := int(float64(width) * ratio)
	dstHeight := int(float64(height) * ratio)
	if dstWidth < 1 {
		dstWidth = 1
	}
	if dstHeight < 1 {
		dstHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
