package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/velvethours/partyline/internal/models"
)

var (
	fontOnce     sync.Once
	parsedGoFont *opentype.Font
	parsedGoErr  error
)

// RenderPassPNG renders the door pass shown from the confirmation email.
// Door staff scan the token; the bars under it are decoration derived from
// the same token so reprints look identical.
func RenderPassPNG(partyName string, reg *models.Registration, ticket *models.Ticket, loc *time.Location) ([]byte, error) {
	const width = 720
	const height = 360
	const padding = 36

	bg := color.RGBA{0x1B, 0x0F, 0x1E, 0xFF}
	ink := color.RGBA{0xF6, 0xEE, 0xF4, 0xFF}
	accent := color.RGBA{0xE4, 0x5A, 0x7A, 0xFF}
	muted := color.RGBA{0x9A, 0x8A, 0x9C, 0xFF}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	headerFace, err := newFontFace(30)
	if err != nil {
		return nil, err
	}
	defer func() { _ = headerFace.Close() }()

	nameFace, err := newFontFace(24)
	if err != nil {
		return nil, err
	}
	defer func() { _ = nameFace.Close() }()

	smallFace, err := newFontFace(15)
	if err != nil {
		return nil, err
	}
	defer func() { _ = smallFace.Close() }()

	drawPassText(img, headerFace, padding, 56, partyName, ink)
	drawPassText(img, smallFace, padding, 82, "DOOR PASS", accent)

	drawPassText(img, nameFace, padding, 140, reg.DisplayName, ink)
	drawPassText(img, smallFace, padding, 166, "@"+reg.Handle, muted)

	issued := ticket.IssuedAt.In(loc).Format("Jan 2, 2006 3:04 PM")
	drawPassText(img, smallFace, padding, 196, "Issued "+issued, muted)

	if ticket.CheckedInAt != nil {
		checked := ticket.CheckedInAt.In(loc).Format("3:04 PM")
		drawPassText(img, smallFace, padding, 220, "Checked in "+checked, accent)
	}

	drawTokenBars(img, ticket.Token, padding, height-108, width-padding*2, 56, ink)
	drawPassText(img, smallFace, padding, height-30, shortToken(ticket.Token), muted)

	passBorder(img, img.Bounds(), 3, accent)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawTokenBars renders a barcode-looking strip derived from the token's hex
// characters. Purely visual; scanners read the token text.
func drawTokenBars(img draw.Image, token string, x, y, maxWidth, height int, clr color.Color) {
	bar := image.NewUniform(clr)
	cursor := x
	for _, c := range token {
		w := 2
		if c >= '8' || (c >= 'a' && c <= 'f') {
			w = 4
		}
		gap := 2
		if c%3 == 0 {
			gap = 4
		}
		if cursor+w+gap > x+maxWidth {
			break
		}
		draw.Draw(img, image.Rect(cursor, y, cursor+w, y+height), bar, image.Point{}, draw.Src)
		cursor += w + gap
	}
}

func shortToken(token string) string {
	if len(token) <= 12 {
		return strings.ToUpper(token)
	}
	return strings.ToUpper(token[:6] + "..." + token[len(token)-6:])
}

func newFontFace(size float64) (*opentype.Face, error) {
	fontOnce.Do(func() {
		parsedGoFont, parsedGoErr = opentype.Parse(goregular.TTF)
	})
	if parsedGoErr != nil {
		return nil, fmt.Errorf("parse font: %w", parsedGoErr)
	}
	face, err := opentype.NewFace(parsedGoFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load font face: %w", err)
	}
	otFace, ok := face.(*opentype.Face)
	if !ok {
		return nil, fmt.Errorf("load font face: unexpected type")
	}
	return otFace, nil
}

func drawPassText(img draw.Image, face font.Face, x, y int, text string, clr color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func passBorder(img draw.Image, rect image.Rectangle, width int, clr color.Color) {
	border := image.NewUniform(clr)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y), border, image.Point{}, draw.Src)
}
