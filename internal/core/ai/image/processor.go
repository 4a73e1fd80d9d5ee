package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"meal-intake/internal/pkg/common"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// 解碼前的像素上限，避免超大圖片耗盡記憶體
const maxPixels = 40_000_000

// Processor 圖片處理器：驗證、縮圖並轉為 JPEG data URI
type Processor struct {
	maxSizeBytes int64
	maxDimension int
	quality      int
}

// NewProcessor 創建圖片處理器
func NewProcessor(maxSizeBytes int64, maxDimension, quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{
		maxSizeBytes: maxSizeBytes,
		maxDimension: maxDimension,
		quality:      quality,
	}
}

// ProcessEncoded 接受 data URI 或純 base64 字串
func (p *Processor) ProcessEncoded(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", common.ErrEmptyInput
	}
	if strings.HasPrefix(encoded, "data:") {
		_, payload, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasPrefix(encoded, "data:image/") {
			return "", common.Wrap(common.ErrInvalidImageFormat, fmt.Errorf("invalid data URI"))
		}
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", common.Wrap(common.ErrInvalidImageFormat, fmt.Errorf("failed to decode base64 data: %w", err))
	}
	return p.Process(data)
}

// Process 處理原始圖片位元組
func (p *Processor) Process(data []byte) (string, error) {
	if len(data) == 0 {
		return "", common.ErrEmptyInput
	}

	// 檢查文件大小
	if p.maxSizeBytes > 0 && int64(len(data)) > p.maxSizeBytes {
		return "", common.Wrap(common.ErrInvalidImageSize,
			fmt.Errorf("image size %d exceeds maximum limit of %d bytes", len(data), p.maxSizeBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", common.Wrap(common.ErrInvalidImageFormat, fmt.Errorf("failed to decode image header: %w", err))
	}
	if !isSupportedFormat(format) {
		return "", common.Wrap(common.ErrInvalidImageType, fmt.Errorf("unsupported image format: %s", format))
	}
	if cfg.Width*cfg.Height > maxPixels {
		return "", common.Wrap(common.ErrInvalidImageSize,
			fmt.Errorf("image dimensions %dx%d too large", cfg.Width, cfg.Height))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", common.Wrap(common.ErrInvalidImageFormat, fmt.Errorf("failed to decode image: %w", err))
	}

	img = p.resize(img)

	// 將圖片轉換為 JPEG 格式
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// resize 等比縮小，使最長邊不超過 maxDimension
// JPEG 沒有透明度，含透明像素的圖片先鋪上白色背景
func (p *Processor) resize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := p.maxDimension > 0 && (w > p.maxDimension || h > p.maxDimension)

	if !scale && isOpaque(img) {
		return img
	}

	nw, nh := w, h
	if scale {
		nw, nh = p.maxDimension, p.maxDimension
		if w >= h {
			nh = max(1, h*p.maxDimension/w)
		} else {
			nw = max(1, w*p.maxDimension/h)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if scale {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	}
	return dst
}

func isOpaque(img image.Image) bool {
	o, ok := img.(interface{ Opaque() bool })
	return ok && o.Opaque()
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
