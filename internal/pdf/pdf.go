// Package pdf counts and rasterizes the pages of scanned PDFs.
package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", path, err)
	}
	return n, nil
}

// CountPages sums the pages of inputs: PDF page counts, one per image.
func CountPages(inputs []string) (int, error) {
	total := 0
	for _, in := range inputs {
		if !utils.IsPDF(in) {
			total++
			continue
		}
		n, err := PageCount(in)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ExtractPageImages writes the largest embedded image of every page of the
// PDF at path into outDir as grayscale PNGs named <prefix>-NNN.png and
// returns their paths in page order.
func ExtractPageImages(path, outDir, prefix string) ([]string, error) {
	tempDir, err := os.MkdirTemp("", "omrscan-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := api.ExtractImagesFile(path, tempDir, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pages, err := collectExtractedImages(tempDir, base)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}

	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	out := make([]string, 0, len(nums))
	for i, n := range nums {
		dst := filepath.Join(outDir, fmt.Sprintf("%s-%03d.png", prefix, i+1))
		if err := utils.SavePNG(dst, vision.ToGray(pages[n])); err != nil {
			return nil, err
		}
		out = append(out, dst)
	}
	return out, nil
}

// collectExtractedImages walks dir and keeps the largest image per page.
// pdfcpu names extracted files <base>_<page>_<id>.<ext>.
func collectExtractedImages(dir, base string) (map[int]image.Image, error) {
	result := make(map[int]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		pageNum, err := parsePageFromFilename(info.Name(), base)
		if err != nil {
			// not a page image
			return nil
		}

		img, err := utils.LoadImage(path)
		if err != nil {
			// Skip unreadable images
			return nil
		}
		if prev, ok := result[pageNum]; !ok || area(img) > area(prev) {
			result[pageNum] = img
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}

// parsePageFromFilename extracts the page number from an extracted image
// name.
func parsePageFromFilename(filename, base string) (int, error) {
	rest, ok := strings.CutPrefix(filename, base+"_")
	if !ok {
		return 0, errors.New("not a page file")
	}
	parts := strings.Split(rest, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(parts[0])
	if err != nil || pageNum < 1 {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}
