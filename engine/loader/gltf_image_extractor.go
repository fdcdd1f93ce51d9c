package loader

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/Carmen-Shannon/oxy-view/engine/model"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Supported image MIME types.
const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeWebP = "image/webp"
)

// gltfImageExtractorImpl is the implementation of the gltfImageExtractor interface.
type gltfImageExtractorImpl struct {
	parser gltfParser
}

// gltfImageExtractor decodes the document's images[] into RGBA8 model.Image records.
type gltfImageExtractor interface {
	// ExtractImage loads and decodes a single image by index.
	//
	// Parameters:
	//   - imageIndex: the index of the image in the document
	//
	// Returns:
	//   - model.Image: the decoded RGBA8 image
	//   - error: *ParseError with ErrMalformed if the source is missing or undecodable
	ExtractImage(imageIndex int) (model.Image, error)

	// ExtractAllImages decodes every image in images[] order.
	//
	// Returns:
	//   - []model.Image: the decoded images
	//   - error: *ParseError for the first failing image
	ExtractAllImages() ([]model.Image, error)
}

var _ gltfImageExtractor = &gltfImageExtractorImpl{}

// newGLTFImageExtractor creates a new image extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfImageExtractor: the image extractor
func newGLTFImageExtractor(parser gltfParser) gltfImageExtractor {
	return &gltfImageExtractorImpl{parser: parser}
}

func (e *gltfImageExtractorImpl) ExtractAllImages() ([]model.Image, error) {
	doc := e.parser.Document()
	images := make([]model.Image, 0, len(doc.Images))
	for i := range doc.Images {
		img, err := e.ExtractImage(i)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (e *gltfImageExtractorImpl) ExtractImage(imageIndex int) (model.Image, error) {
	doc := e.parser.Document()
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return model.Image{}, containerErr(ErrMalformed, "image index %d out of range", imageIndex)
	}
	src := &doc.Images[imageIndex]

	var (
		data []byte
		mime = src.MimeType
		err  error
	)
	switch {
	case src.BufferView != nil:
		data, err = e.parser.ReadBufferView(*src.BufferView)
		if err != nil {
			return model.Image{}, err
		}
	case src.URI != "":
		var declared string
		data, declared, err = e.parser.ReadURI(src.URI)
		if err != nil {
			return model.Image{}, containerErr(ErrMalformed, "image %d: %v", imageIndex, err)
		}
		if mime == "" {
			mime = declared
		}
	default:
		return model.Image{}, containerErr(ErrMalformed, "image %d has neither bufferView nor uri", imageIndex)
	}

	decoded, err := decodeImage(data, mime)
	if err != nil {
		return model.Image{}, containerErr(ErrMalformed, "image %d: %v", imageIndex, err)
	}
	decoded.Name = src.Name
	return decoded, nil
}

// decodeImage sniffs the encoded bytes, falls back to the declared MIME type when sniffing
// fails, and converts the result to tightly packed RGBA8.
func decodeImage(data []byte, declaredMIME string) (model.Image, error) {
	mime := declaredMIME
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch mime {
	case mimePNG:
		img, err = png.Decode(r)
	case mimeJPEG:
		img, err = jpeg.Decode(r)
	case mimeWebP:
		img, err = webp.Decode(r)
	default:
		return model.Image{}, fmt.Errorf("unsupported image type %q", mime)
	}
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to decode %s: %w", mime, err)
	}

	rgba := toRGBA(img)
	b := rgba.Bounds()
	return model.Image{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pixels: rgba.Pix,
	}, nil
}

// toRGBA returns img as a zero-origin *image.RGBA whose Pix has no row padding.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == b.Dx()*4 {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
