package theme

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"volca-seq/config"
	"volca-seq/panel"
)

// dimAmount is how far a merely viewed color is pulled toward black
const dimAmount = 0.75

// Palette holds the key colors. Selected and Cursor have one entry per
// channel.
type Palette struct {
	Selected []panel.RGB
	Armed    panel.RGB
	Cursor   []panel.RGB
}

// FromConfig parses the configured #rrggbb strings
func FromConfig(pc config.PaletteConfig) (*Palette, error) {
	p := &Palette{}
	for i, s := range pc.Selected {
		c, err := parse(s)
		if err != nil {
			return nil, fmt.Errorf("selected[%d]: %w", i, err)
		}
		p.Selected = append(p.Selected, c)
	}
	for i, s := range pc.Cursor {
		c, err := parse(s)
		if err != nil {
			return nil, fmt.Errorf("cursor[%d]: %w", i, err)
		}
		p.Cursor = append(p.Cursor, c)
	}
	armed, err := parse(pc.Armed)
	if err != nil {
		return nil, fmt.Errorf("armed: %w", err)
	}
	p.Armed = armed

	if len(p.Selected) == 0 || len(p.Cursor) == 0 {
		return nil, fmt.Errorf("palette needs selected and cursor colors")
	}
	return p, nil
}

// Default is the stock palette
func Default() *Palette {
	p, err := FromConfig(config.DefaultConfig().Palette)
	if err != nil {
		panic(fmt.Sprintf("default palette: %v", err))
	}
	return p
}

func parse(s string) (panel.RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return panel.Off, err
	}
	return fromColorful(c), nil
}

func fromColorful(c colorful.Color) panel.RGB {
	r, g, b := c.Clamped().RGB255()
	return panel.RGB{r, g, b}
}

func toColorful(c panel.RGB) colorful.Color {
	return colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}
}

// SelectedFor returns the view/edit color of channel ch
func (p *Palette) SelectedFor(ch int) panel.RGB {
	return index(p.Selected, ch)
}

// CursorFor returns the playhead color of channel ch
func (p *Palette) CursorFor(ch int) panel.RGB {
	return index(p.Cursor, ch)
}

// DimFor returns the dimmed selected color of channel ch
func (p *Palette) DimFor(ch int) panel.RGB {
	return Dim(p.SelectedFor(ch), dimAmount)
}

func index(colors []panel.RGB, i int) panel.RGB {
	if len(colors) == 0 {
		return panel.Off
	}
	if i < 0 {
		i = 0
	}
	return colors[i%len(colors)]
}

// Dim blends c toward black; amount 0 keeps c, 1 gives black
func Dim(c panel.RGB, amount float64) panel.RGB {
	return fromColorful(toColorful(c).BlendRgb(colorful.Color{}, amount))
}

// Wheel walks the color wheel: 0 green, 85 red, 170 blue, back to green.
func Wheel(pos uint8) panel.RGB {
	switch {
	case pos < 85:
		return panel.RGB{pos * 3, 255 - pos*3, 0}
	case pos < 170:
		pos -= 85
		return panel.RGB{255 - pos*3, 0, pos * 3}
	default:
		pos -= 170
		return panel.RGB{0, pos * 3, 255 - pos*3}
	}
}
