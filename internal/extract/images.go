package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// imageObject is an image XObject resolved from a page's resources,
// with its payload re-encoded into a file format Typst can embed.
type imageObject struct {
	name string
	pxW  int
	pxH  int
	data []byte
	ext  string
}

// pageContent returns the decoded, concatenated content stream of a
// page. Pages are 1-indexed.
func (d *Document) pageContent(page int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := pdfcpu.ExtractPageContent(d.ctx, page)
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", page, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", page, err)
	}
	return data, nil
}

// pageImages resolves the image XObjects reachable from a page's
// resource dictionary, keyed by the names the Do operator uses.
// Undecodable images are skipped, never an error.
func (d *Document) pageImages(page int) map[string]imageObject {
	d.mu.Lock()
	defer d.mu.Unlock()

	if page < 1 || page > len(d.pages) {
		return nil
	}
	resources := d.pages[page-1].resources
	if resources == nil {
		return nil
	}
	xobjObj, found := resources.Find("XObject")
	if !found {
		return nil
	}
	xobjects, ok := d.derefDict(xobjObj)
	if !ok {
		return nil
	}

	out := make(map[string]imageObject)
	for name, ref := range xobjects {
		sd, ok := d.deref(ref).(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if n, isName := subtype.(types.Name); !isName || n != "Image" {
				continue
			}
		} else {
			continue
		}
		img, err := d.decodeImage(name, sd)
		if err != nil {
			continue
		}
		out[name] = img
	}
	return out
}

// decodeImage turns one image stream into an embeddable payload.
// DCT/JPX streams pass through raw; flate streams are converted from
// pixel samples to PNG.
func (d *Document) decodeImage(name string, sd types.StreamDict) (imageObject, error) {
	w := d.intEntry(sd.Dict, "Width")
	h := d.intEntry(sd.Dict, "Height")
	if w <= 0 || h <= 0 {
		return imageObject{}, fmt.Errorf("image %s: missing dimensions", name)
	}
	img := imageObject{name: name, pxW: w, pxH: h}

	switch d.imageFilter(sd.Dict) {
	case "DCTDecode":
		img.data = sd.Raw
		img.ext = "jpg"
	case "JPXDecode":
		img.data = sd.Raw
		img.ext = "jp2"
	default:
		if err := sd.Decode(); err != nil {
			return imageObject{}, fmt.Errorf("image %s: %w", name, err)
		}
		data, err := samplesToPNG(sd.Content, w, h, d.imageComponents(sd.Dict))
		if err != nil {
			return imageObject{}, fmt.Errorf("image %s: %w", name, err)
		}
		img.data = data
		img.ext = "png"
	}
	if len(img.data) == 0 {
		return imageObject{}, fmt.Errorf("image %s: empty payload", name)
	}
	return img, nil
}

// imageFilter returns the last filter applied to the stream, which
// determines the on-disk format of the raw payload.
func (d *Document) imageFilter(dict types.Dict) string {
	o, found := dict.Find("Filter")
	if !found {
		return ""
	}
	switch v := d.deref(o).(type) {
	case types.Name:
		return string(v)
	case types.Array:
		if len(v) > 0 {
			if n, ok := d.deref(v[len(v)-1]).(types.Name); ok {
				return string(n)
			}
		}
	}
	return ""
}

// imageComponents maps the image color space to a per-pixel sample
// count. Only 8-bit gray and RGB samples are converted; anything else
// is treated as gray and may come out wrong rather than fail.
func (d *Document) imageComponents(dict types.Dict) int {
	o, found := dict.Find("ColorSpace")
	if !found {
		return 1
	}
	switch v := d.deref(o).(type) {
	case types.Name:
		if v == "DeviceRGB" || v == "CalRGB" {
			return 3
		}
	case types.Array:
		if len(v) > 0 {
			if n, ok := d.deref(v[0]).(types.Name); ok && n == "ICCBased" && len(v) > 1 {
				if sd, isStream := d.deref(v[1]).(types.StreamDict); isStream {
					if d.intEntry(sd.Dict, "N") == 3 {
						return 3
					}
				}
			}
		}
	}
	return 1
}

func (d *Document) intEntry(dict types.Dict, key string) int {
	o, found := dict.Find(key)
	if !found {
		return 0
	}
	f, ok := toFloat(d.deref(o))
	if !ok {
		return 0
	}
	return int(f)
}

// samplesToPNG encodes 8-bit gray or RGB pixel rows as PNG.
func samplesToPNG(samples []byte, w, h, components int) ([]byte, error) {
	var img image.Image
	switch components {
	case 3:
		need := w * h * 3
		if len(samples) < need {
			return nil, fmt.Errorf("short rgb samples: %d < %d", len(samples), need)
		}
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			rgba.Pix[i*4+0] = samples[i*3+0]
			rgba.Pix[i*4+1] = samples[i*3+1]
			rgba.Pix[i*4+2] = samples[i*3+2]
			rgba.Pix[i*4+3] = 0xff
		}
		img = rgba
	default:
		need := w * h
		if len(samples) < need {
			return nil, fmt.Errorf("short gray samples: %d < %d", len(samples), need)
		}
		gray := image.NewGray(image.Rect(0, 0, w, h))
		copy(gray.Pix, samples[:need])
		img = gray
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
