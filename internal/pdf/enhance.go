package pdf

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// Sigmoidal contrast of the legacy enhancement step.
const (
	ContrastMidpoint = 0.6
	ContrastFactor   = 9.0
)

// EnhanceContrast stretches the gray levels of img to the full range and
// then applies a sigmoidal contrast curve.
func EnhanceContrast(img *image.Gray) *image.Gray {
	return vision.ToGray(imaging.AdjustSigmoid(AutoLevel(img), ContrastMidpoint, ContrastFactor))
}

// AutoLevel maps the darkest pixel of img to 0 and the brightest to 255.
func AutoLevel(img *image.Gray) *image.Gray {
	lo, hi := uint8(255), uint8(0)
	for _, v := range img.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	out := image.NewGray(img.Rect)
	if hi <= lo {
		copy(out.Pix, img.Pix)
		return out
	}
	span := float64(hi - lo)
	var lut [256]uint8
	for v := int(lo); v <= int(hi); v++ {
		lut[v] = uint8(float64(v-int(lo))*255/span + 0.5)
	}
	for i, v := range img.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// EnhanceFile rewrites the PNG at path with EnhanceContrast applied.
func EnhanceFile(path string) error {
	img, err := utils.LoadImage(path)
	if err != nil {
		return err
	}
	return utils.SavePNG(path, EnhanceContrast(vision.ToGray(img)))
}
