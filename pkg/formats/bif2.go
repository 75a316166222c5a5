package formats

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// BIF2 keys.
const (
	bifID          = "Bl.BLIDM:"
	bifName        = "Bl.Beschreibung.Name:"
	bifCollarX     = "Bl.Beschreibung.Ansatzpunkt.Rechtswert:"
	bifCollarY     = "Bl.Beschreibung.Ansatzpunkt.Hochwert:"
	bifCollarZ     = "Bl.Beschreibung.Ansatzpunkt.Hoehe:"
	bifPathX       = "Bl.Verlauf.Punkt.Rechtswert:"
	bifPathY       = "Bl.Verlauf.Punkt.Hochwert:"
	bifPathZ       = "Bl.Verlauf.Punkt.Hoehe:"
	bifLayerID     = "#Bl.Schicht.Schicht-ID:"
	bifLayerDepth  = "Bl.Schicht.Bohrmeter:"
	bifLayerThick  = "Bl.Schicht.Maechtigkeit:"
	bifLayerAngle  = "Bl.Schicht.Winkel_am_Kern:"
	bifLayerRock   = "Bl.Schicht.Gestein.Code:"
	bifLayerPointX = "Bl.Schicht.Punkt.Rechtswert:"
	bifLayerPointY = "Bl.Schicht.Punkt.Hochwert:"
	bifLayerPointZ = "Bl.Schicht.Punkt.Hoehe:"

	bifDescPrefix = "Bl.Beschreibung."
)

// Borehole is a drilling log read from a BIF2 file.
type Borehole struct {
	ID     string
	Name   string
	Collar r3.Vec
	// Path is the surveyed borehole trajectory, if recorded.
	Path   []r3.Vec
	Layers []BoreholeLayer

	// Attributes holds the remaining Bl.Beschreibung.* entries keyed by
	// the name after the prefix. Repeated keys are joined with ", ".
	Attributes map[string]string
}

// BoreholeLayer is one drilled layer. Bottom is the point where the layer
// ends along the borehole.
type BoreholeLayer struct {
	ID        int
	Depth     float64 // Bohrmeter
	Thickness float64 // Maechtigkeit
	Angle     string
	Rock      string // Gestein.Code, repeated codes joined with ", "
	Bottom    r3.Vec
}

// BoreholeSegment is the line from a layer's top to its bottom.
type BoreholeSegment struct {
	Layer    BoreholeLayer
	From, To r3.Vec
}

// Segments returns one segment per layer, each starting at the previous
// layer's bottom (the collar for the first layer).
func (b *Borehole) Segments() []BoreholeSegment {
	out := make([]BoreholeSegment, len(b.Layers))
	from := b.Collar
	for i, l := range b.Layers {
		out[i] = BoreholeSegment{Layer: l, From: from, To: l.Bottom}
		from = l.Bottom
	}
	return out
}

// Properties returns the borehole header as flat feature properties:
// BLIDM, Name, the collar and every Bl.Beschreibung entry. Dots in nested
// keys become underscores.
func (b *Borehole) Properties() map[string]string {
	p := make(map[string]string, len(b.Attributes)+5)
	for k, v := range b.Attributes {
		p[strings.ReplaceAll(k, ".", "_")] = v
	}
	p["BLIDM"] = b.ID
	p["Name"] = b.Name
	p["Ansatzpunkt_Rechtswert"] = formatFloat(b.Collar.X)
	p["Ansatzpunkt_Hochwert"] = formatFloat(b.Collar.Y)
	p["Ansatzpunkt_Hoehe"] = formatFloat(b.Collar.Z)
	return p
}

// Properties returns the layer fields keyed after their Bl.Schicht entries.
func (l BoreholeLayer) Properties() map[string]string {
	return map[string]string{
		"Schicht_Schicht_ID":     strconv.Itoa(l.ID),
		"Schicht_Bohrmeter":      formatFloat(l.Depth),
		"Schicht_Maechtigkeit":   formatFloat(l.Thickness),
		"Schicht_Winkel_am_Kern": l.Angle,
		"Schicht_Gestein_Code":   l.Rock,
	}
}

// PathSegments returns the surveyed trajectory as consecutive segments.
// It is empty when fewer than two path points were recorded.
func (b *Borehole) PathSegments() [][2]r3.Vec {
	if len(b.Path) < 2 {
		return nil
	}
	out := make([][2]r3.Vec, len(b.Path)-1)
	for i := range out {
		out[i] = [2]r3.Vec{b.Path[i], b.Path[i+1]}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseBIF2 parses a BIF2 borehole log. The file is usually UTF-16 with
// a byte order mark; UTF-8 is accepted too.
func ParseBIF2(data []byte) (*Borehole, error) {
	l := newLines(data)
	b := &Borehole{Attributes: map[string]string{}}

	var (
		path    r3.Vec
		layer   *BoreholeLayer
		collarZ bool
	)
	num := func(v string) (float64, error) {
		f, err := parseFloats([]string{v})
		if err != nil {
			return 0, formatErr(l.num, "bad number %q", v)
		}
		return f[0], nil
	}

	for l.next() {
		key, value, _ := strings.Cut(l.text, " ")
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case bifID:
			b.ID = value
		case bifName:
			b.Name = value

		case bifCollarX:
			b.Collar.X, err = num(value)
		case bifCollarY:
			b.Collar.Y, err = num(value)
		case bifCollarZ:
			b.Collar.Z, err = num(value)
			collarZ = true

		case bifPathX:
			path.X, err = num(value)
		case bifPathY:
			path.Y, err = num(value)
		case bifPathZ:
			path.Z, err = num(value)
			b.Path = append(b.Path, path)

		case bifLayerID:
			id, convErr := strconv.Atoi(value)
			if convErr != nil {
				return nil, formatErr(l.num, "bad layer id %q", value)
			}
			b.Layers = append(b.Layers, BoreholeLayer{ID: id})
			layer = &b.Layers[len(b.Layers)-1]

		case bifLayerDepth, bifLayerThick, bifLayerAngle, bifLayerRock,
			bifLayerPointX, bifLayerPointY, bifLayerPointZ:
			if layer == nil {
				return nil, formatErr(l.num, "%s outside a layer", key)
			}
			switch key {
			case bifLayerDepth:
				layer.Depth, err = num(value)
			case bifLayerThick:
				layer.Thickness, err = num(value)
			case bifLayerAngle:
				layer.Angle = value
			case bifLayerRock:
				layer.Rock = joinValue(layer.Rock, value)
			case bifLayerPointX:
				layer.Bottom.X, err = num(value)
			case bifLayerPointY:
				layer.Bottom.Y, err = num(value)
			case bifLayerPointZ:
				layer.Bottom.Z, err = num(value)
			}

		default:
			if name, ok := strings.CutPrefix(key, bifDescPrefix); ok {
				name = strings.TrimSuffix(name, ":")
				b.Attributes[name] = joinValue(b.Attributes[name], value)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := l.err(); err != nil {
		return nil, err
	}
	if b.ID == "" {
		return nil, formatErr(0, "missing %s", bifID)
	}
	if !collarZ && len(b.Layers) > 0 {
		return nil, formatErr(0, "borehole %s has layers but no collar", b.ID)
	}
	return b, nil
}

func joinValue(prev, v string) string {
	if prev == "" {
		return v
	}
	return prev + ", " + v
}

// ReadBorehole reads a BIF2 file.
func ReadBorehole(path string) (*Borehole, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	b, err := ParseBIF2(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return b, nil
}
