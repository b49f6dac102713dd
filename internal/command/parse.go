package command

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownCommand is returned by Parse for an argv no builder produces.
var ErrUnknownCommand = errors.New("unknown fiberpath command")

// Params is the logical content of an argument vector. Only the fields of
// Operation are meaningful.
type Params struct {
	Operation  Operation
	Path       string
	Output     string
	AxisFormat string
	Scale      float64
	Port       string
	BaudRate   uint32
	DryRun     bool
	JSON       bool
}

// Parse recovers the logical parameters from an argument vector built by
// this package.
func Parse(argv []string) (Params, error) {
	if len(argv) == 0 {
		return Params{}, fmt.Errorf("%w: empty argument vector", ErrUnknownCommand)
	}
	if len(argv) == 1 && argv[0] == "--version" {
		return Params{Operation: OpVersion}, nil
	}
	if len(argv) < 2 {
		return Params{}, fmt.Errorf("%w: %q has no path argument", ErrUnknownCommand, argv[0])
	}

	var p Params
	switch argv[0] {
	case "plan":
		p.Operation = OpPlan
	case "simulate":
		p.Operation = OpSimulate
	case "plot":
		p.Operation = OpPreview
	case "stream":
		p.Operation = OpStream
	case "validate":
		p.Operation = OpValidate
	default:
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownCommand, argv[0])
	}
	p.Path = argv[1]

	rest := argv[2:]
	for i := 0; i < len(rest); i++ {
		flag := rest[i]
		switch flag {
		case "--json":
			p.JSON = true
			continue
		case "--dry-run":
			p.DryRun = true
			continue
		}

		if i+1 >= len(rest) {
			return Params{}, fmt.Errorf("flag %s requires a value", flag)
		}
		value := rest[i+1]
		i++

		switch flag {
		case "--output":
			p.Output = value
		case "--axis-format":
			p.AxisFormat = value
		case "--port":
			p.Port = value
		case "--scale":
			s, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Params{}, fmt.Errorf("parse --scale %q: %w", value, err)
			}
			p.Scale = s
		case "--baud-rate":
			r, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Params{}, fmt.Errorf("parse --baud-rate %q: %w", value, err)
			}
			p.BaudRate = uint32(r)
		default:
			return Params{}, fmt.Errorf("unknown flag %s for %s", flag, argv[0])
		}
	}
	return p, nil
}
