package hitmap

// minExtent is the half width given to a degenerate grid axis, in metres.
const minExtent = 1e-6

// spread widens zero-extent axes so that every grid has a non-zero area.
// A flat axis borrows the extent of the other one.
func spread(b bbox) bbox {
	w, h := b.width(), b.height()
	switch {
	case w == 0 && h == 0:
		return b.pad(minExtent, minExtent)
	case w == 0:
		return b.pad(h/2, 0)
	case h == 0:
		return b.pad(0, w/2)
	}
	return b
}

// binning sums the point energies into the cells of a regular grid over
// the bounding box and divides by the cell area. The integral of the
// result equals the total energy of the points.
func binning(m *RaysHitMap, shape [2]int) (*FluenceData, error) {
	box := spread(m.box)
	nx, ny := shape[0], shape[1]
	fd := newFluenceData(box, shape, Binning)

	dx := box.width() / float64(nx)
	dy := box.height() / float64(ny)
	area := dx * dy
	for _, p := range m.points {
		ix := cellIndex(p.Position.X-box.minX, dx, nx)
		iy := cellIndex(p.Position.Y-box.minY, dy, ny)
		fd.Values[iy][ix] += p.Weight / area
	}
	return fd, nil
}

func cellIndex(offset, step float64, n int) int {
	i := int(offset / step)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
