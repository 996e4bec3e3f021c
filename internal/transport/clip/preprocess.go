package clip

import (
	"bytes"
	"fmt"
	"image"
	"math"

	// Decoders for the picture formats the extracts carry.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// CLIP visual input geometry and normalization constants
// (openai/clip-vit-base-patch32 preprocessor).
const inputSize = 224

var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// preprocess decodes image bytes and produces the CHW float32 pixel tensor
// the visual encoder expects: shorter side scaled to 224, center-cropped,
// normalized per channel.
func preprocess(data []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	scaled := scaleShorterSide(img, inputSize)
	cropped := centerCrop(scaled, inputSize)

	out := make([]float32, 3*inputSize*inputSize)
	plane := inputSize * inputSize
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := cropped.At(cropped.Bounds().Min.X+x, cropped.Bounds().Min.Y+y).RGBA()
			i := y*inputSize + x
			out[i] = (float32(r>>8)/255 - clipMean[0]) / clipStd[0]
			out[plane+i] = (float32(g>>8)/255 - clipMean[1]) / clipStd[1]
			out[2*plane+i] = (float32(b>>8)/255 - clipMean[2]) / clipStd[2]
		}
	}
	return out, nil
}

// scaleShorterSide resizes so the shorter side equals target, preserving
// aspect ratio, with bilinear resampling.
func scaleShorterSide(img image.Image, target int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, target, target))
	}

	var nw, nh int
	if w < h {
		nw = target
		nh = (h*target + w/2) / w
	} else {
		nh = target
		nw = (w*target + h/2) / h
	}
	if nw < target {
		nw = target
	}
	if nh < target {
		nh = target
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// centerCrop cuts a size x size window from the middle of img.
func centerCrop(img image.Image, size int) image.Image {
	b := img.Bounds()
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Copy(dst, image.Point{}, img, image.Rect(x0, y0, x0+size, y0+size), xdraw.Src, nil)
	return dst
}

// normalizeL2 scales v to unit length in place.
func normalizeL2(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
