// Package storage 托管上传的图片：校验格式后写入本地目录或 S3 兼容的对象存储。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/mindfulpath/internal/apperr"
)

// MaxImageBytes 是单张图片允许的最大体积。
const MaxImageBytes = 10 << 20

var (
	ErrNotImage      = apperr.Validation("Only image files are allowed")
	ErrImageTooLarge = apperr.Validation("Image exceeds the 10MB limit")
	ErrEmptyFile     = apperr.Validation("Image file is required")
)

// ImageStore 持久化对象并返回可公开访问的 URL。
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// File 是从请求中读取出的上传文件。
type File struct {
	Name string
	Data []byte
}

// ImageInfo 描述解码得到的图片元数据。
type ImageInfo struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// InspectImage 解码图片头部，拒绝非图片或超出大小限制的文件。
func InspectImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, ErrEmptyFile
	}
	if len(data) > MaxImageBytes {
		return ImageInfo{}, ErrImageTooLarge
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, ErrNotImage
	}
	return ImageInfo{
		Format:      format,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// ReadMultipart 读取表单文件，超过限制时提前返回。
func ReadMultipart(fh *multipart.FileHeader) (*File, error) {
	if fh == nil {
		return nil, nil
	}
	if fh.Size > MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxImageBytes+1))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &File{Name: fh.Filename, Data: data}, nil
}

// Uploader 校验图片并写入对象存储。
type Uploader struct {
	store ImageStore
	now   func() time.Time
}

func NewUploader(store ImageStore) *Uploader {
	return &Uploader{store: store, now: time.Now}
}

// Upload 保存图片并返回其公开 URL，folder 用于区分 blogs/categories/profiles 等用途。
func (u *Uploader) Upload(ctx context.Context, folder string, file *File) (string, error) {
	if file == nil {
		return "", ErrEmptyFile
	}
	info, err := InspectImage(file.Data)
	if err != nil {
		return "", err
	}

	key := objectKey(folder, info.Format, u.now())
	url, err := u.store.Save(ctx, key, info.ContentType, file.Data)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("store image: %w", err))
	}
	return url, nil
}

// Remove 删除之前上传的图片，非本存储的 URL 会被忽略。
func (u *Uploader) Remove(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return u.store.Delete(ctx, url)
}

func objectKey(folder, format string, now time.Time) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = "uploads"
	}
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	return path.Join(folder, fmt.Sprintf("%s-%s%s", now.Format("20060102"), uuid.New().String(), ext))
}
