package bot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/icza/mjpeg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Fixed video geometry. The renderer holds one static composed frame for
// the whole duration; it does not animate.
const (
	canvasWidth  = 1080
	canvasHeight = 1920
	frameRate    = 24
	durationSec  = 10
	textMargin   = 100
	lineHeight   = 70
	fontSize     = 60
	jpegQuality  = 85

	// VideoExt is the fixed extension of rendered artifacts.
	VideoExt = ".avi"
)

// Renderer turns a quote string into a fixed-duration, fixed-resolution
// video file with word-wrapped centered text on a plain background.
type Renderer struct {
	Dir      string // output directory for rendered videos
	FontPath string // optional TTF override; empty uses the bundled font

	face font.Face
}

// NewRenderer creates a renderer writing into dir. The directory is created
// if missing. Font resolution order: FontPath, bundled Go Regular, then the
// built-in bitmap face — rendering never fails over a missing font asset.
func NewRenderer(dir, fontPath string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create videos dir: %w", err)
	}
	r := &Renderer{Dir: dir, FontPath: fontPath}
	r.face = loadFace(fontPath)
	return r, nil
}

func loadFace(fontPath string) font.Face {
	if fontPath != "" {
		if data, err := os.ReadFile(fontPath); err == nil {
			if face, err := parseFace(data); err == nil {
				return face
			}
		}
	}
	if face, err := parseFace(goregular.TTF); err == nil {
		return face
	}
	return basicfont.Face7x13
}

func parseFace(ttf []byte) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Render composes the quote onto a black canvas and encodes it as a
// Motion-JPEG AVI of frameRate*durationSec identical frames. It returns
// the path of the written artifact.
func (r *Renderer) Render(quote string) (string, error) {
	frame, err := r.composeFrame(quote)
	if err != nil {
		return "", fmt.Errorf("compose frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("motivation_%s_%s%s", timestamp, SanitizeQuote(quote), VideoExt)
	outPath := filepath.Join(r.Dir, name)

	aw, err := mjpeg.New(outPath, canvasWidth, canvasHeight, frameRate)
	if err != nil {
		return "", fmt.Errorf("create video %s: %w", outPath, err)
	}
	for i := 0; i < frameRate*durationSec; i++ {
		if err := aw.AddFrame(buf.Bytes()); err != nil {
			aw.Close()
			os.Remove(outPath)
			return "", fmt.Errorf("write frame: %w", err)
		}
	}
	if err := aw.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("finalize video: %w", err)
	}
	return outPath, nil
}

// composeFrame draws the word-wrapped quote centered on a black canvas.
func (r *Renderer) composeFrame(quote string) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	lines := wrapText(quote, r.face, canvasWidth-textMargin)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: r.face,
	}

	blockHeight := len(lines) * lineHeight
	y := (canvasHeight-blockHeight)/2 + lineHeight
	for _, line := range lines {
		w := font.MeasureString(r.face, line).Ceil()
		x := (canvasWidth - w) / 2
		if x < 0 {
			x = 0
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		y += lineHeight
	}
	return img, nil
}

// wrapText greedily packs words into lines whose rendered pixel width stays
// within maxWidth. A single word wider than maxWidth still gets its own
// line; words are never dropped.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

// SanitizeQuote reduces a quote to a filesystem-safe slice: the first 30
// characters filtered to alphanumerics, spaces, dashes and underscores.
func SanitizeQuote(quote string) string {
	if len(quote) > 30 {
		quote = quote[:30]
	}
	var b strings.Builder
	for _, c := range quote {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == ' ', c == '-', c == '_':
			b.WriteRune(c)
		}
	}
	return strings.TrimSpace(b.String())
}
