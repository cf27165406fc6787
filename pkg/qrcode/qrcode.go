// Package qrcode 预约二维码：随机码生成与带文字标签的 PNG 渲染
package qrcode

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/big"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultLength 默认二维码随机码长度
	DefaultLength = 6
	// DefaultSize 默认二维码边长（像素）
	DefaultSize = 256
	// LabelHeight 二维码下方文字区高度（像素）
	LabelHeight = 30
	// FileName 下载文件名
	FileName = "qrcode.png"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewToken 生成 n 位大写字母数字随机码
func NewToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}
	limit := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("生成随机码失败: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Normalize 扫码输入统一为去空白的大写形式
func Normalize(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// Label 标签文字
func Label(token string) string {
	return "QR Code: " + token
}

// Render 渲染二维码 PNG，下方附带 "QR Code: XXXXXX" 标签
func Render(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	qr, err := goqrcode.New(token, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	qrImage := qr.Image(size)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size+LabelHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, size, size), qrImage, qrImage.Bounds().Min, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	text := Label(token)
	width := d.MeasureString(text).Round()
	x := max((size-width)/2, 0)
	// 基线位于文字区垂直居中偏下
	y := size + (LabelHeight+basicfont.Face7x13.Ascent)/2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
