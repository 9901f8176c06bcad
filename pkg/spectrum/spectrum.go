// Package spectrum holds sampled spectral distributions.
//
// A Spectrum is a list of wavelength bins in ascending order with one value
// per bin. For light the value is an energy density per micrometre of
// wavelength; for filters and beam splitters it is a dimensionless
// transmission in [0, 1]. The value of bin i applies to the interval between
// wavelength i and wavelength i+1, so the last bin only closes the range.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

var (
	// ErrInvalidRange is returned for empty, reversed or non-finite ranges
	// and for non-positive resolutions.
	ErrInvalidRange = errors.New("invalid spectrum range")
	// ErrNegativeValue is returned for negative energies or scaling factors.
	ErrNegativeValue = errors.New("negative spectrum value")
	// ErrOutOfRange is returned when a peak is placed outside the spectrum.
	// The spectrum is left unmodified.
	ErrOutOfRange = errors.New("wavelength outside spectrum range")
	// ErrTooSmall is returned for spectra with fewer than two bins.
	ErrTooSmall = errors.New("spectrum has fewer than two bins")
)

// Spectrum is a sampled spectral distribution. Wavelengths are kept in
// micrometres internally.
type Spectrum struct {
	lambdas []float64
	values  []float64
}

// Point is a single (wavelength, value) sample.
type Point struct {
	Wavelength units.Length
	Value      float64
}

// Line is a narrow laser line given by its centre wavelength and energy.
type Line struct {
	Wavelength units.Length `yaml:"wavelength" json:"wavelength" validate:"finite,gt=0"`
	Energy     units.Energy `yaml:"energy" json:"energy" validate:"finite,gte=0"`
}

// New creates an empty spectrum covering [start, end) with the given
// resolution.
func New(start, end, resolution units.Length) (*Spectrum, error) {
	if !start.IsFinite() || !end.IsFinite() || !resolution.IsFinite() {
		return nil, fmt.Errorf("non-finite bounds: %w", ErrInvalidRange)
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("resolution %s must be positive: %w", resolution, ErrInvalidRange)
	}
	if start < 0 {
		return nil, fmt.Errorf("start %s must not be negative: %w", start, ErrInvalidRange)
	}
	if end <= start {
		return nil, fmt.Errorf("end %s must be greater than start %s: %w", end, start, ErrInvalidRange)
	}
	n := int(math.Round(float64((end - start) / resolution)))
	if n < 2 {
		return nil, fmt.Errorf("range %s..%s at %s: %w", start, end, resolution, ErrTooSmall)
	}
	s := &Spectrum{
		lambdas: make([]float64, n),
		values:  make([]float64, n),
	}
	first := start.Micrometers()
	step := resolution.Micrometers()
	for i := range s.lambdas {
		s.lambdas[i] = math.FMA(float64(i), step, first)
	}
	return s, nil
}

// FromPoints builds a spectrum from explicit samples. Wavelengths must be
// strictly ascending and positive.
func FromPoints(points []Point) (*Spectrum, error) {
	if len(points) < 2 {
		return nil, ErrTooSmall
	}
	s := &Spectrum{
		lambdas: make([]float64, len(points)),
		values:  make([]float64, len(points)),
	}
	for i, p := range points {
		if !p.Wavelength.IsFinite() || p.Wavelength <= 0 || !units.IsFinite(p.Value) {
			return nil, fmt.Errorf("sample %d: non-finite or non-positive wavelength: %w", i, ErrInvalidRange)
		}
		if i > 0 && p.Wavelength <= points[i-1].Wavelength {
			return nil, fmt.Errorf("sample %d: wavelengths must be strictly ascending: %w", i, ErrInvalidRange)
		}
		s.lambdas[i] = p.Wavelength.Micrometers()
		s.values[i] = p.Value
	}
	return s, nil
}

// FromLaserLines builds a spectrum just wide enough to contain the given
// lines and adds each as a resolution-limited peak.
func FromLaserLines(lines []Line, resolution units.Length) (*Spectrum, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no laser lines: %w", ErrInvalidRange)
	}
	if resolution <= 0 || !resolution.IsFinite() {
		return nil, fmt.Errorf("resolution %s must be positive: %w", resolution, ErrInvalidRange)
	}
	lo, hi := lines[0].Wavelength, lines[0].Wavelength
	for _, l := range lines[1:] {
		lo = min(lo, l.Wavelength)
		hi = max(hi, l.Wavelength)
	}
	s, err := New(lo, hi+2*resolution, resolution)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if err := s.AddSinglePeak(l.Wavelength, l.Energy); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Clone returns a deep copy.
func (s *Spectrum) Clone() *Spectrum {
	if s == nil {
		return nil
	}
	return &Spectrum{
		lambdas: append([]float64(nil), s.lambdas...),
		values:  append([]float64(nil), s.values...),
	}
}

// Len returns the number of bins.
func (s *Spectrum) Len() int {
	return len(s.lambdas)
}

// Points returns a copy of the samples.
func (s *Spectrum) Points() []Point {
	out := make([]Point, len(s.lambdas))
	for i := range s.lambdas {
		out[i] = Point{Wavelength: units.Micrometer(s.lambdas[i]), Value: s.values[i]}
	}
	return out
}

// Range returns the first and the last wavelength.
func (s *Spectrum) Range() (start, end units.Length) {
	if len(s.lambdas) == 0 {
		return 0, 0
	}
	return units.Micrometer(s.lambdas[0]), units.Micrometer(s.lambdas[len(s.lambdas)-1])
}

func (s *Spectrum) contains(um float64) bool {
	return len(s.lambdas) > 0 && um >= s.lambdas[0] && um < s.lambdas[len(s.lambdas)-1]
}

// AverageResolution estimates the bin width from the bandwidth and the
// number of bins.
func (s *Spectrum) AverageResolution() units.Length {
	if len(s.lambdas) < 2 {
		return 0
	}
	start, end := s.Range()
	return (end - start) / units.Length(len(s.lambdas)-1)
}

// AddSinglePeak adds a resolution-limited peak carrying the given energy.
// A wavelength between two bins is split linearly so the total energy
// grows by exactly e.
func (s *Spectrum) AddSinglePeak(wavelength units.Length, e units.Energy) error {
	if e < 0 {
		return fmt.Errorf("peak energy %s: %w", e, ErrNegativeValue)
	}
	if len(s.lambdas) < 2 {
		return ErrTooSmall
	}
	um := wavelength.Micrometers()
	if !s.contains(um) {
		return fmt.Errorf("peak at %s: %w", wavelength, ErrOutOfRange)
	}
	idx := sort.SearchFloat64s(s.lambdas, um)
	if idx == 0 {
		s.values[0] += e.Joules() / (s.lambdas[1] - s.lambdas[0])
		return nil
	}
	lower, upper := s.lambdas[idx-1], s.lambdas[idx]
	delta := upper - lower
	perMicrometer := e.Joules() / delta
	part := perMicrometer * (um - lower) / delta
	s.values[idx] += part
	s.values[idx-1] += perMicrometer - part
	return nil
}

// AddLorentzianPeak adds a Lorentzian line of the given full width and
// integrated energy.
func (s *Spectrum) AddLorentzianPeak(center, width units.Length, e units.Energy) error {
	if center < 0 {
		return fmt.Errorf("centre wavelength %s: %w", center, ErrInvalidRange)
	}
	if width < 0 {
		return fmt.Errorf("line width %s: %w", width, ErrInvalidRange)
	}
	if e < 0 {
		return fmt.Errorf("peak energy %s: %w", e, ErrNegativeValue)
	}
	c, w := center.Micrometers(), width.Micrometers()
	for i, l := range s.lambdas {
		s.values[i] = math.FMA(e.Joules(), lorentz(c, w, l), s.values[i])
	}
	return nil
}

func lorentz(center, width, x float64) float64 {
	return 0.5 / math.Pi * width / math.FMA(0.25*width, width, (x-center)*(x-center))
}

// IsTransmission reports whether every value lies in [0, 1].
func (s *Spectrum) IsTransmission() bool {
	for _, v := range s.values {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// TotalEnergy integrates the spectrum over all bins using compensated
// summation.
func (s *Spectrum) TotalEnergy() units.Energy {
	var sum, c float64
	for i := 0; i+1 < len(s.lambdas); i++ {
		y := (s.lambdas[i+1]-s.lambdas[i])*s.values[i] - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return units.Joule(sum)
}

// CenterWavelength returns the first moment of the distribution. An empty
// spectrum yields NaN.
func (s *Spectrum) CenterWavelength() units.Length {
	var weighted, total float64
	for i := 0; i+1 < len(s.lambdas); i++ {
		w := s.values[i] * (s.lambdas[i+1] - s.lambdas[i])
		weighted += s.lambdas[i] * w
		total += w
	}
	return units.Micrometer(weighted / total)
}

// Value returns the linearly interpolated value at the given wavelength.
// ok is false outside the spectrum range.
func (s *Spectrum) Value(wavelength units.Length) (v float64, ok bool) {
	n := len(s.lambdas)
	if n == 0 {
		return 0, false
	}
	um := wavelength.Micrometers()
	if um == s.lambdas[n-1] {
		return s.values[n-1], true
	}
	if !s.contains(um) {
		return 0, false
	}
	idx := sort.SearchFloat64s(s.lambdas, um)
	left, right := idx-1, idx
	if idx == 0 {
		left, right = 0, 1
	}
	ratio := (um - s.lambdas[left]) / (s.lambdas[right] - s.lambdas[left])
	return math.FMA(s.values[left], 1-ratio, s.values[right]*ratio), true
}

// ScaleVertical multiplies every value by factor.
func (s *Spectrum) ScaleVertical(factor float64) error {
	if factor < 0 || !units.IsFinite(factor) {
		return fmt.Errorf("scaling factor %g: %w", factor, ErrNegativeValue)
	}
	for i := range s.values {
		s.values[i] *= factor
	}
	return nil
}

// Resample replaces the values of s by src rebinned onto the wavelength
// grid of s. Energy inside the common range is preserved.
func (s *Spectrum) Resample(src *Spectrum) {
	if src == nil || len(src.lambdas) < 2 || len(s.lambdas) < 2 {
		return
	}
	si := 0
	srcLo, srcHi := src.lambdas[0], src.lambdas[1]
	bi := 0
	bLo, bHi := s.lambdas[0], s.lambdas[1]
	s.values[0] = 0
	for srcHi < bLo && si+2 < len(src.lambdas) {
		si++
		srcLo, srcHi = src.lambdas[si], src.lambdas[si+1]
	}
	for {
		ratio := overlap(bLo, bHi, srcLo, srcHi)
		s.values[bi] += src.values[si] * ratio * (srcHi - srcLo) / (bHi - bLo)
		if srcHi < bHi {
			if si+2 < len(src.lambdas) {
				si++
				srcLo, srcHi = src.lambdas[si], src.lambdas[si+1]
				continue
			}
			break
		}
		if bi+2 < len(s.lambdas) {
			bi++
			bLo, bHi = s.lambdas[bi], s.lambdas[bi+1]
			s.values[bi] = 0
			continue
		}
		break
	}
	// bins never visited keep no stale data
	for i := bi + 1; i < len(s.values); i++ {
		s.values[i] = 0
	}
}

// overlap returns the fraction of the source interval covered by the
// bucket interval.
func overlap(bucketLo, bucketHi, srcLo, srcHi float64) float64 {
	switch {
	case bucketLo < srcLo && bucketHi > srcLo && bucketHi < srcHi:
		return (bucketHi - srcLo) / (srcHi - srcLo)
	case bucketLo <= srcLo && bucketHi >= srcHi:
		return 1
	case bucketLo >= srcLo && bucketHi <= srcHi:
		return (bucketHi - bucketLo) / (srcHi - srcLo)
	case bucketLo > srcLo && bucketLo < srcHi && bucketHi > srcHi:
		return (srcHi - bucketLo) / (srcHi - srcLo)
	}
	return 0
}

func (s *Spectrum) resampled(o *Spectrum) []float64 {
	r := s.Clone()
	r.Resample(o)
	return r.values
}

// Filter multiplies the spectrum by a transmission spectrum resampled onto
// its grid.
func (s *Spectrum) Filter(transmission *Spectrum) {
	t := s.resampled(transmission)
	for i := range s.values {
		s.values[i] *= t[i]
	}
}

// SplitBy keeps the transmitted part T·s in s and returns the complementary
// part (1−T)·s as a new spectrum.
func (s *Spectrum) SplitBy(transmission *Spectrum) *Spectrum {
	t := s.resampled(transmission)
	rest := s.Clone()
	for i := range s.values {
		rest.values[i] = s.values[i] * (1 - t[i])
		s.values[i] *= t[i]
	}
	return rest
}

// Add adds o, resampled onto the grid of s.
func (s *Spectrum) Add(o *Spectrum) {
	r := s.resampled(o)
	for i := range s.values {
		s.values[i] += r[i]
	}
}

// Sub subtracts o, resampled onto the grid of s. Negative results are
// clamped to zero.
func (s *Spectrum) Sub(o *Spectrum) {
	r := s.resampled(o)
	for i := range s.values {
		s.values[i] = max(s.values[i]-r[i], 0)
	}
}

// Merge returns a spectrum containing both inputs. The result spans both
// ranges at the finer of the two resolutions. A nil input yields the other
// input; two nil inputs yield nil.
func Merge(a, b *Spectrum) *Spectrum {
	switch {
	case a == nil && b == nil:
		return nil
	case b == nil:
		return a
	case a == nil:
		return b
	}
	aLo, aHi := a.Range()
	bLo, bHi := b.Range()
	res := min(a.AverageResolution(), b.AverageResolution())
	out, err := New(min(aLo, bLo), max(aHi, bHi), res)
	if err != nil {
		// degenerate inputs: fall back to adding onto a copy of a
		out = a.Clone()
		out.Add(b)
		return out
	}
	out.Resample(a)
	out.Add(b)
	return out
}

func (s *Spectrum) String() string {
	start, end := s.Range()
	return fmt.Sprintf("spectrum %s..%s (%d bins, %s)", start, end, s.Len(), s.TotalEnergy())
}
