package executor

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/nfnt/resize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	// Color-model normalization handles whatever clients upload.
	_ "image/gif"
	_ "image/png"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/logging"
)

// maxImageWidth caps normalized images at roughly A4 at 300dpi.
const maxImageWidth = 2480

// renderWorkers bounds concurrent page encoding during PDF rasterization.
const renderWorkers = 4

// pdfToImagesExecutor renders one JPEG per page and packages them into a
// single zip archive.
type pdfToImagesExecutor struct {
	log logging.Logger
}

func (e *pdfToImagesExecutor) Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
	wd, err := singleInput(req)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.New(wd.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open PDF for rendering: %v", common.ErrValidation, err)
	}
	defer doc.Close()

	dir, err := scope.Dir()
	if err != nil {
		return nil, err
	}

	// The fitz document handle is not safe for concurrent use, so pages
	// are rendered under a lock while JPEG encoding runs in parallel.
	var (
		mu    sync.Mutex
		g, gc = errgroup.WithContext(ctx)
	)
	g.SetLimit(renderWorkers)

	for i := 0; i < doc.NumPage(); i++ {
		g.Go(func() error {
			if err := gc.Err(); err != nil {
				return err
			}
			mu.Lock()
			img, err := doc.Image(i)
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}
			return writeJPEG(filepath.Join(dir, fmt.Sprintf("page-%03d.jpg", i+1)), img)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, ent := range entries {
		files = append(files, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(files)

	out, err := scope.File(".zip")
	if err != nil {
		return nil, err
	}
	if err := buildZip(out, files); err != nil {
		return nil, err
	}

	e.log.Debug(ctx, "rendered pages", "count", len(files), "source", wd.SourceName)
	return &Result{Path: out, Filename: outName(wd, "-pages", ".zip"), ContentType: "application/zip"}, nil
}

// imagesToPDF composes the uploaded images into one PDF, one page per
// image, in input order. Every image is first normalized to a common
// color model; supplying zero images fails with ErrEmptyInput.
func imagesToPDF(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("%w: image composition needs at least one image", common.ErrEmptyInput)
	}

	dir, err := scope.Dir()
	if err != nil {
		return nil, err
	}

	normalized := make([]string, len(req.Inputs))
	for i, wd := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(dir, fmt.Sprintf("img-%03d.jpg", i))
		if err := normalizeImage(wd.Path, dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrValidation, wd.SourceName, err)
		}
		normalized[i] = dst
	}

	out, err := scope.File(".pdf")
	if err != nil {
		return nil, err
	}
	if err := api.ImportImagesFile(normalized, out, nil, nil); err != nil {
		return nil, fmt.Errorf("compose images: %w", err)
	}

	return &Result{Path: out, Filename: "images.pdf", ContentType: "application/pdf"}, nil
}

// normalizeImage decodes any supported image, downscales oversized ones
// and re-encodes as JPEG so each page enters composition with the same
// color model.
func normalizeImage(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	if img.Bounds().Dx() > maxImageWidth {
		img = resize.Resize(maxImageWidth, 0, img, resize.Lanczos3)
	}

	return writeJPEG(dst, img)
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
