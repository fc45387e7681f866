package mixer

import (
	"image"
	"math/rand"

	"github.com/samber/lo"
)

// EffectBlock draws the image in square tiles of random size and order.
func EffectBlock() Effect {
	return &block{
		size: 32,
		rand: true,
	}
}

// EffectTiles draws the image in size x size tiles, row by row.
func EffectTiles(size int) Effect {
	return &block{
		size: size,
	}
}

type block struct {
	size int
	rand bool
}

func (e *block) Name() string {
	return "block"
}

func (e *block) Process(img Image) (<-chan Write, error) {
	wc := make(chan Write)

	go func() {
		r := img.Bounds()

		size := e.size
		if size <= 0 {
			size = 32
		}
		if e.rand {
			size = rand.Intn(32) + 8
		}

		var ws []Write
		for y := r.Min.Y; y < r.Max.Y; y += size {
			for x := r.Min.X; x < r.Max.X; x += size {
				tile := image.Rect(x, y, x+size, y+size).Intersect(r)
				ws = append(ws, Write{
					At:  tile.Min.Sub(r.Min),
					Img: img.SubImage(tile),
				})
			}
		}

		if e.rand {
			ws = lo.Shuffle(ws)
		}

		for _, w2 := range ws {
			wc <- w2
		}

		close(wc)
	}()

	return wc, nil
}
