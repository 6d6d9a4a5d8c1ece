package gamemap

import (
	"fmt"

	"openfront/engine/internal/prng"
)

// Parse builds a map from ASCII rows: '#' is land, '~' or '.' is water.
func Parse(rows []string) (*Map, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("map has no rows")
	}
	width := len(rows[0])
	land := make([]bool, 0, width*len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has width %d, want %d", y, len(row), width)
		}
		for x, c := range row {
			switch c {
			case '#':
				land = append(land, true)
			case '~', '.':
				land = append(land, false)
			default:
				return nil, fmt.Errorf("unknown terrain %q at (%d,%d)", c, x, y)
			}
		}
	}
	return New(width, len(rows), land)
}

// MustParse is Parse for fixtures.
func MustParse(rows ...string) *Map {
	m, err := Parse(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// Generate grows seeded islands on an ocean. The same seed always yields the same map.
func Generate(width, height int, seed int64) (*Map, error) {
	if width < 8 || height < 8 {
		return nil, fmt.Errorf("generated maps must be at least 8x8, got %dx%d", width, height)
	}
	rand := prng.New(seed)
	land := make([]bool, width*height)
	islands := 3 + rand.NextInt(0, 4)
	for i := 0; i < islands; i++ {
		cx := rand.NextInt(width/8, width-width/8)
		cy := rand.NextInt(height/8, height-height/8)
		rx := rand.NextInt(width/8+1, width/3+2)
		ry := rand.NextInt(height/8+1, height/3+2)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				dx := float64(x-cx) / float64(rx)
				dy := float64(y-cy) / float64(ry)
				d := dx*dx + dy*dy
				if d <= 0.7 || (d <= 1.0 && rand.Chance(2)) {
					land[y*width+x] = true
				}
			}
		}
	}
	// keep a water frame so every island has a coast
	for x := 0; x < width; x++ {
		land[x] = false
		land[(height-1)*width+x] = false
	}
	for y := 0; y < height; y++ {
		land[y*width] = false
		land[y*width+width-1] = false
	}
	return New(width, height, land)
}
