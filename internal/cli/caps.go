package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// ErrCodeUnknownDevice is reported when --device names no catalog profile.
const ErrCodeUnknownDevice = "E012"

// CapsOptions holds flags for the caps command.
type CapsOptions struct {
	*RootOptions
	Device string
}

// DeviceCaps describes what a device profile lets a command id request.
type DeviceCaps struct {
	Device    string   `json:"device"`
	Supported []string `json:"supported"`
	// Default is what a request with an empty mask is granted.
	Default    []string `json:"default"`
	KernelSwap bool     `json:"kernel_swap"`
}

// NewCapsCommand creates the caps command.
func NewCapsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CapsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "caps <catalog-dir>",
		Short: "Show device mutation capabilities",
		Long: `Show the mutation kinds each device profile in a catalog supports,
and what a command id request with an empty mask is granted on it.

Examples:
  mcl caps ./catalog
  mcl caps ./catalog --device full --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCaps(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Device, "device", "", "show one device profile only")

	return cmd
}

func runCaps(opts *CapsOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, err := loadCatalog(formatter, catalogDir)
	if err != nil {
		return err
	}

	tables := cat.Devices
	if opts.Device != "" {
		caps, ok := cat.Device(opts.Device)
		if !ok {
			msg := fmt.Sprintf("device profile %q not in catalog", opts.Device)
			_ = formatter.Error(ErrCodeUnknownDevice, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		tables = []engine.CapabilityTable{caps}
	}

	out := make([]DeviceCaps, 0, len(tables))
	for _, t := range tables {
		out = append(out, describeCaps(t))
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}
	for _, d := range out {
		fmt.Fprintf(formatter.Writer, "%s\n", d.Device)
		fmt.Fprintf(formatter.Writer, "  supported:   %s\n", joinOrNone(d.Supported))
		fmt.Fprintf(formatter.Writer, "  default:     %s\n", joinOrNone(d.Default))
		fmt.Fprintf(formatter.Writer, "  kernel swap: %t\n", d.KernelSwap)
	}
	return nil
}

func describeCaps(t engine.CapabilityTable) DeviceCaps {
	// A zero mask never fails; Grant clamps it to the device.
	def, _ := t.Grant(0)
	return DeviceCaps{
		Device:     t.Device,
		Supported:  t.Supported.Names(),
		Default:    def.Names(),
		KernelSwap: t.Supports(ir.MutateKernelInstruction),
	}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}
