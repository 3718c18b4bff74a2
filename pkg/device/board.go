package device

import (
	"context"
	"fmt"
)

// Variant selects the firmware running on a Board.
type Variant string

// Firmware variants.
const (
	VariantRegister Variant = "register"
	VariantCounter  Variant = "counter"
)

// Firmware is the main loop of a firmware variant.
type Firmware interface {
	Run(context.Context) error
}

// Board is a simulated development board.
type Board struct {
	Variant  Variant
	Hardware *SimHardware
	Regs     *RegisterFile
	Slave    *Slave
	Firmware Firmware
}

// NewBoard creates a board running the firmware variant.
func NewBoard(variant Variant) (*Board, error) {
	b := &Board{
		Variant:  variant,
		Hardware: &SimHardware{},
		Regs:     &RegisterFile{},
		Slave:    NewSlave(),
	}
	switch variant {
	case VariantRegister, "":
		b.Variant = VariantRegister
		b.Firmware = NewRegisterInterpreter(b.Slave, b.Regs, b.Hardware)
	case VariantCounter:
		b.Firmware = NewCounterInterpreter(b.Slave)
	default:
		return nil, fmt.Errorf("unknown firmware variant %q", variant)
	}
	return b, nil
}

// Name implements Named.
func (b *Board) Name() string {
	return "board:" + string(b.Variant)
}

// Run implements Runnable.
func (b *Board) Run(ctx context.Context) error {
	return b.Firmware.Run(ctx)
}
