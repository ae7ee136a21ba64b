package coords

// Layout selects how grid positions are distributed.
type Layout int

const (
	// LayoutFixed centers the grid with a fixed spacing.
	LayoutFixed Layout = iota
	// LayoutUniform stretches the grid edge-to-edge over normalized space.
	LayoutUniform
)

func (l Layout) String() string {
	if l == LayoutUniform {
		return "uniform"
	}
	return "fixed"
}

// ParseLayout accepts "fixed" or "uniform"; anything else is fixed.
func ParseLayout(s string) Layout {
	if s == "uniform" {
		return LayoutUniform
	}
	return LayoutFixed
}

// FitSpacing is the largest spacing that keeps a rows×cols grid inside
// normalized space.
func FitSpacing(rows, cols int, aspect float32) float32 {
	if rows <= 0 || cols <= 0 {
		return 0
	}
	sx := 2 * aspect / float32(cols)
	sy := 2 / float32(rows)
	if sx < sy {
		return sx
	}
	return sy
}

// GenerateFixedGrid returns rows*cols points, row-major, centered on the
// origin and spaced by spacing. A spacing <= 0 is derived with FitSpacing.
func GenerateFixedGrid(rows, cols int, aspect, spacing float32) []Point {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	if spacing <= 0 {
		spacing = FitSpacing(rows, cols, aspect)
	}
	originX := -float32(cols-1) * spacing / 2
	originY := float32(rows-1) * spacing / 2

	pts := make([]Point, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pts = append(pts, Point{
				X: originX + float32(c)*spacing,
				Y: originY - float32(r)*spacing,
			})
		}
	}
	return pts
}

// GenerateUniformGrid returns rows*cols points, row-major, filling the whole
// normalized space edge-to-edge. A single row or column sits on the axis.
func GenerateUniformGrid(rows, cols int, aspect float32) []Point {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	pts := make([]Point, 0, rows*cols)
	for r := 0; r < rows; r++ {
		y := float32(0)
		if rows > 1 {
			y = 1 - 2*float32(r)/float32(rows-1)
		}
		for c := 0; c < cols; c++ {
			x := float32(0)
			if cols > 1 {
				x = -aspect + 2*aspect*float32(c)/float32(cols-1)
			}
			pts = append(pts, Point{X: x, Y: y})
		}
	}
	return pts
}

// Generate dispatches to the generator for layout.
func Generate(layout Layout, rows, cols int, aspect, spacing float32) []Point {
	if layout == LayoutUniform {
		return GenerateUniformGrid(rows, cols, aspect)
	}
	return GenerateFixedGrid(rows, cols, aspect, spacing)
}
