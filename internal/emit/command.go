package emit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"voxelmaze.ai/internal/geometry"
	"voxelmaze.ai/internal/voxel"
)

var ErrMalformed = errors.New("malformed command")

type Kind uint8

const (
	KindFill Kind = iota + 1
	KindSetblock
	KindComment
)

// Command is one output line. Setblock commands use Box.Min only.
type Command struct {
	Kind  Kind
	Box   geometry.Box
	Block string
	Data  string
	Text  string
}

func Fill(b geometry.Box, block string) Command {
	return Command{Kind: KindFill, Box: b, Block: block}
}

func Setblock(v geometry.Vec3, block, data string) Command {
	return Command{Kind: KindSetblock, Box: geometry.Box{Min: v, Max: v}, Block: block, Data: data}
}

func Comment(format string, args ...any) Command {
	return Command{Kind: KindComment, Text: fmt.Sprintf(format, args...)}
}

func (c Command) String() string {
	var s string
	switch c.Kind {
	case KindFill:
		s = fmt.Sprintf("fill ~%d ~%d ~%d ~%d ~%d ~%d %s",
			c.Box.Min.X, c.Box.Min.Y, c.Box.Min.Z, c.Box.Max.X, c.Box.Max.Y, c.Box.Max.Z, c.Block)
	case KindSetblock:
		s = fmt.Sprintf("setblock ~%d ~%d ~%d %s", c.Box.Min.X, c.Box.Min.Y, c.Box.Min.Z, c.Block)
	case KindComment:
		return "# " + c.Text
	default:
		return ""
	}
	if c.Data != "" {
		s += " " + c.Data
	}
	return s
}

// Touches reports whether a fill or setblock writes any voxel in b.
func (c Command) Touches(b geometry.Box) bool {
	if c.Kind != KindFill && c.Kind != KindSetblock {
		return false
	}
	return normalize(c.Box).Intersects(b)
}

func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return Command{Kind: KindComment, Text: strings.TrimSpace(line[1:])}, nil
	}
	f := strings.Fields(line)
	if len(f) == 0 {
		return Command{}, fmt.Errorf("empty line: %w", ErrMalformed)
	}
	var (
		c      Command
		ncoord int
	)
	switch f[0] {
	case "fill":
		c.Kind, ncoord = KindFill, 6
	case "setblock":
		c.Kind, ncoord = KindSetblock, 3
	default:
		return Command{}, fmt.Errorf("%q: unknown verb %q: %w", line, f[0], ErrMalformed)
	}
	if len(f) != 1+ncoord+1 && len(f) != 1+ncoord+2 {
		return Command{}, fmt.Errorf("%q: want %d coordinates and a block: %w", line, ncoord, ErrMalformed)
	}
	xyz := make([]int, ncoord)
	for i := range xyz {
		v, err := parseRel(f[1+i])
		if err != nil {
			return Command{}, fmt.Errorf("%q: %v: %w", line, err, ErrMalformed)
		}
		xyz[i] = v
	}
	c.Box.Min = geometry.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	c.Box.Max = c.Box.Min
	if c.Kind == KindFill {
		c.Box.Max = geometry.Vec3{X: xyz[3], Y: xyz[4], Z: xyz[5]}
	}
	c.Block = f[1+ncoord]
	if len(f) == 1+ncoord+2 {
		c.Data = f[2+ncoord]
	}
	return c, nil
}

func parseRel(tok string) (int, error) {
	if !strings.HasPrefix(tok, "~") {
		return 0, fmt.Errorf("coordinate %q is not relative", tok)
	}
	if tok == "~" {
		return 0, nil
	}
	return strconv.Atoi(tok[1:])
}

// Join renders cmds as the newline separated artifact.
func Join(cmds []Command) string {
	var b strings.Builder
	for i, c := range cmds {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// Lines is Join without the final concatenation.
func Lines(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

func Parse(text string) ([]Command, error) {
	var out []Command
	for n, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := ParseCommand(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func Digest(cmds []Command) string {
	sum := sha256.Sum256([]byte(Join(cmds)))
	return hex.EncodeToString(sum[:])
}

// Apply executes cmds against s in order. Comments are skipped.
func Apply(s *voxel.Store, cmds []Command) {
	for _, c := range cmds {
		apply(s, c)
	}
}

func apply(s *voxel.Store, c Command) {
	switch c.Kind {
	case KindFill:
		s.Fill(normalize(c.Box), c.Block)
	case KindSetblock:
		s.Set(c.Box.Min, c.Block)
	}
}

// normalize orders a fill's corners the way the game does.
func normalize(b geometry.Box) geometry.Box {
	if b.Min.X > b.Max.X {
		b.Min.X, b.Max.X = b.Max.X, b.Min.X
	}
	if b.Min.Y > b.Max.Y {
		b.Min.Y, b.Max.Y = b.Max.Y, b.Min.Y
	}
	if b.Min.Z > b.Max.Z {
		b.Min.Z, b.Max.Z = b.Max.Z, b.Min.Z
	}
	return b
}
